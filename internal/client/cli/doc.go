// Package cli is an interactive editor console for a pagetree server.
//
// It reads one command per line, calls the server through the gRPC
// client and prints the outcome. Access tokens are issued elsewhere and
// pasted in with "login"; until then the console works as the anonymous
// caller and sees only Live content.
package cli
