// Package cli provides the interactive passvault command-line client.
//
// Lines typed at the prompt are sent to the server as they are, so the
// client speaks exactly the server's command set (type HELP). When a
// command that carries a password is typed without it, the password is read
// from the terminal without echo:
//
//	REGISTER alice        prompts for the master password
//	LOGIN alice           prompts for the master password
//	ADD-PASS email        prompts for the entry password
//	UPDATE-PASS email     prompts for the entry password
//	CHECK-PASS            prompts for the password to check
//
// "exit" and "quit" leave the program; the server ends the session when
// the connection closes.
package cli
