// Package classify maps file extensions to coarse file types.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/mwhitford/filecabinet/internal/models"
)

// extensionTypes is the static extension -> type table. Lookups are
// case-insensitive; anything absent classifies as other.
var extensionTypes = map[string]models.FileType{
	// documents
	"pdf": models.FileTypeDocument, "doc": models.FileTypeDocument,
	"docx": models.FileTypeDocument, "txt": models.FileTypeDocument,
	"rtf": models.FileTypeDocument, "odt": models.FileTypeDocument,
	"md": models.FileTypeDocument, "tex": models.FileTypeDocument,
	"pages": models.FileTypeDocument, "wpd": models.FileTypeDocument,

	// spreadsheets
	"xls": models.FileTypeSpreadsheet, "xlsx": models.FileTypeSpreadsheet,
	"csv": models.FileTypeSpreadsheet, "ods": models.FileTypeSpreadsheet,
	"numbers": models.FileTypeSpreadsheet, "tsv": models.FileTypeSpreadsheet,

	// presentations
	"ppt": models.FileTypePresentation, "pptx": models.FileTypePresentation,
	"odp": models.FileTypePresentation, "key": models.FileTypePresentation,

	// images
	"jpg": models.FileTypeImage, "jpeg": models.FileTypeImage,
	"png": models.FileTypeImage, "gif": models.FileTypeImage,
	"bmp": models.FileTypeImage, "webp": models.FileTypeImage,
	"svg": models.FileTypeImage, "heic": models.FileTypeImage,
	"tiff": models.FileTypeImage, "tif": models.FileTypeImage,
	"ico": models.FileTypeImage, "raw": models.FileTypeImage,
	"cr2": models.FileTypeImage, "nef": models.FileTypeImage,

	// video
	"mp4": models.FileTypeVideo, "avi": models.FileTypeVideo,
	"mkv": models.FileTypeVideo, "mov": models.FileTypeVideo,
	"wmv": models.FileTypeVideo, "flv": models.FileTypeVideo,
	"webm": models.FileTypeVideo, "m4v": models.FileTypeVideo,
	"mpg": models.FileTypeVideo, "mpeg": models.FileTypeVideo,

	// audio
	"mp3": models.FileTypeAudio, "wav": models.FileTypeAudio,
	"flac": models.FileTypeAudio, "aac": models.FileTypeAudio,
	"ogg": models.FileTypeAudio, "wma": models.FileTypeAudio,
	"m4a": models.FileTypeAudio, "aiff": models.FileTypeAudio,
	"mid": models.FileTypeAudio, "midi": models.FileTypeAudio,

	// archives
	"zip": models.FileTypeArchive, "rar": models.FileTypeArchive,
	"7z": models.FileTypeArchive, "tar": models.FileTypeArchive,
	"gz": models.FileTypeArchive, "bz2": models.FileTypeArchive,
	"xz": models.FileTypeArchive, "iso": models.FileTypeArchive,
	"dmg": models.FileTypeArchive,

	// code
	"go": models.FileTypeCode, "js": models.FileTypeCode,
	"ts": models.FileTypeCode, "jsx": models.FileTypeCode,
	"tsx": models.FileTypeCode, "py": models.FileTypeCode,
	"rb": models.FileTypeCode, "java": models.FileTypeCode,
	"c": models.FileTypeCode, "cpp": models.FileTypeCode,
	"h": models.FileTypeCode, "hpp": models.FileTypeCode,
	"cs": models.FileTypeCode, "php": models.FileTypeCode,
	"rs": models.FileTypeCode, "swift": models.FileTypeCode,
	"kt": models.FileTypeCode, "sh": models.FileTypeCode,
	"bat": models.FileTypeCode, "ps1": models.FileTypeCode,
	"html": models.FileTypeCode, "css": models.FileTypeCode,
	"scss": models.FileTypeCode, "sql": models.FileTypeCode,
	"vue": models.FileTypeCode, "lua": models.FileTypeCode,

	// data
	"json": models.FileTypeData, "xml": models.FileTypeData,
	"yaml": models.FileTypeData, "yml": models.FileTypeData,
	"toml": models.FileTypeData, "ini": models.FileTypeData,
	"db": models.FileTypeData, "sqlite": models.FileTypeData,
	"parquet": models.FileTypeData, "avro": models.FileTypeData,
	"log": models.FileTypeData,

	// fonts
	"ttf": models.FileTypeFont, "otf": models.FileTypeFont,
	"woff": models.FileTypeFont, "woff2": models.FileTypeFont,
	"eot": models.FileTypeFont,

	// ebooks
	"epub": models.FileTypeEbook, "mobi": models.FileTypeEbook,
	"azw": models.FileTypeEbook, "azw3": models.FileTypeEbook,
	"fb2": models.FileTypeEbook, "djvu": models.FileTypeEbook,

	// design
	"psd": models.FileTypeDesign, "ai": models.FileTypeDesign,
	"sketch": models.FileTypeDesign, "fig": models.FileTypeDesign,
	"xd": models.FileTypeDesign, "indd": models.FileTypeDesign,
	"afdesign": models.FileTypeDesign, "blend": models.FileTypeDesign,
}

// Extension returns the lowercase extension of a filename without the dot.
// Files without an extension (or dotfiles like ".bashrc") yield "".
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == filename {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ByExtension returns the file type for an extension (no dot, any case)
func ByExtension(ext string) models.FileType {
	if t, ok := extensionTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return models.FileTypeOther
}

// ByFilename classifies a filename by its extension
func ByFilename(filename string) models.FileType {
	return ByExtension(Extension(filename))
}

// KnownExtensions returns every extension in the table. The order is not
// stable between calls; callers sort if they need determinism.
func KnownExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	return exts
}
