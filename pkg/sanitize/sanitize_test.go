package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "hi there", Text("  <b>hi</b> there "))
	assert.Equal(t, "x", Text("<script>alert(1)</script>x"))
	assert.Equal(t, "Smith & Sons", Text("Smith & Sons"))
	assert.Equal(t, "", Text("   "))
	assert.Equal(t, "1 < 2", Text("1 < 2"))
}

func TestText_EncodedMarkup(t *testing.T) {
	assert.Equal(t, "", Text("&lt;script&gt;alert(1)&lt;/script&gt;"))
	assert.Equal(t, "bold", Text("&lt;b&gt;bold&lt;/b&gt;"))
	assert.Equal(t, "x", Text("&amp;lt;b&amp;gt;x"))
	assert.Equal(t, "Smith & Sons", Text("Smith &amp; Sons"))
	assert.NotContains(t, Line("&lt;img src=x onerror=alert(1)&gt;hi"), "<")
}

func TestLine(t *testing.T) {
	assert.Equal(t, "Jane Doe", Line(" Jane \n  Doe "))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", Email("  A@X.com "))
}

func TestFileBase(t *testing.T) {
	cases := map[string]string{
		"report.pdf":             "report",
		"my report (final).pdf":  "my_report_final",
		"../../etc/passwd.pdf":   "passwd",
		`C:\Users\me\scan.png`:   "scan",
		".hidden":                "file",
		"عقد.docx":               "file",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileBase(in), in)
	}
}

func TestFileExt(t *testing.T) {
	assert.Equal(t, ".pdf", FileExt("A.PDF"))
	assert.Equal(t, "", FileExt("noext"))
	assert.Equal(t, "", FileExt("bad.p df"))
}
