package buffer

import "github.com/shinyvision/multibuffer/internal/utils"

// File is the on-disk identity of a buffer, when it has one. Unsaved
// scratch buffers have a nil *File.
type File struct {
	Path string
}

// URI returns the file:// URI form of the path, used anywhere a caller
// needs to round-trip through LSP-shaped identifiers.
func (f *File) URI() string {
	if f == nil {
		return ""
	}
	return utils.PathToURI(f.Path)
}

// LanguageServerInfo is the minimal shape the composition's completion
// glue (spec §4.6) needs from "the buffer's language server": a set of
// characters that should trigger completion as the user types them.
type LanguageServerInfo struct {
	TriggerCharacters []string
}
