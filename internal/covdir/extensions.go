package covdir

// supportedExtensions lists the file extensions coverage is collected
// for, matching what the ingestion side instruments.
var supportedExtensions = []string{
	// C
	"c",
	"h",
	// C++
	"cpp",
	"cc",
	"cxx",
	"hh",
	"hpp",
	"hxx",
	// JavaScript
	"js",
	"jsm",
	"xul",
	"xml",
	"html",
	"xhtml",
	// Rust
	"rs",
}

// SupportedExtensions returns the file extensions coverage reports may
// contain, without the leading dot.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}
