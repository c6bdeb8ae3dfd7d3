// Package client speaks the passvault line protocol from the client side.
//
// A Conn owns one TCP connection. Dial waits for the server greeting; Do
// sends one request line and collects its reply, reading the extra lines of
// LIST-PASS and HELP blocks up to the END terminator. Server-side failures
// come back as a Reply with OK set to false; transport failures are
// returned as errors and leave the Conn unusable.
//
// A Conn is not safe for concurrent use.
package client
