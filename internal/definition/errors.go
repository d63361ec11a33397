package definition

import "errors"

var (
	// ErrUnsupportedFormat — расширение файла не .json и не .hcl.
	ErrUnsupportedFormat = errors.New("unsupported definition format")

	// ErrParse — файл не разбирается.
	ErrParse = errors.New("parse definition")
)
