// Command pm manages encrypted password vaults from the terminal.
package main

import "github.com/awnumar/memguard"

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	root := newRootCmd(newApp())
	if err := root.Execute(); err != nil {
		memguard.SafeExit(handleError(root.ErrOrStderr(), err))
	}
}
