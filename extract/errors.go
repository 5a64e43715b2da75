package extract

import "errors"

var (
	// ErrContentExtraction indicates text extraction from a document failed.
	// The underlying cause is attached via error wrapping. Extraction is not
	// retried automatically.
	ErrContentExtraction = errors.New("content extraction failed")

	// ErrNotPDF indicates the document bytes do not carry the PDF signature.
	ErrNotPDF = errors.New("not a PDF document")

	// ErrInvalidChunkConfig indicates chunking parameters that cannot make
	// forward progress (overlap >= max size, or non-positive max size).
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
)
