// Package extractors dispatches downloaded file content to a
// format-specific extractor by MIME type and shields the pipeline from
// extraction failures: any error or panic becomes an error-kind result
// rather than aborting the file.
package extractors
