package chunk

import "errors"

// ErrUnsupportedLanguage triggers the fixed-window fallback per spec §4.1.
var ErrUnsupportedLanguage = errors.New("unsupported language")
