package store

// SetRemoveFile swaps the function rotation uses to delete old backups.
func SetRemoveFile(f func(string) error) (restore func()) {
	prev := removeFile
	removeFile = f
	return func() { removeFile = prev }
}
