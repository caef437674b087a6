/*
Package atomicfile replaces files so that readers never see a partially
written file.

Writing robustly requires:

- handling error returned by `Write()`

- handling error returned by `Close()`

- removing partially written file if `Write()` or `Close()` failed

- not truncating the old file before the new one is fully written

Package atomicfile writes to a temporary file in the destination directory
and renames it over destination only after everything was written and
synced:

	err := atomicfile.WriteWith(path, 0644, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(v)
	})

or, when more control is needed:

	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	// a no-op after Close()
	defer f.RemoveIfNotClosed()

	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Close()

To learn more see https://presstige.io/p/atomicfile-22143bf788b542fda2262ca7aee57ae4
*/
package atomicfile
