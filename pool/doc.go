// Package pool
// Author: momentics <momentics@gmail.com>
//
// Object and fixed-size byte pools. The accept pipeline draws its address
// buffers from FixedBytes; the echo server reuses one for receive buffers.
package pool
