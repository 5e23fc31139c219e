package pagesource

import (
	"strings"
	"testing"
)

func TestFormat_MinifiedDocument(t *testing.T) {
	input := `<!DOCTYPE html><html><head><title>Test</title></head><body><div><p>Text</p></div></body></html>`
	result, err := Format(input, Options{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := `<!DOCTYPE html>
<html>
  <head>
    <title>
      Test
    </title>
  </head>
  <body>
    <div>
      <p>
        Text
      </p>
    </div>
  </body>
</html>
`
	if result != expected {
		t.Errorf("Format() minified:\ngot:\n%s\nwant:\n%s", result, expected)
	}
}

func TestFormat_FragmentGetsDocumentWrapper(t *testing.T) {
	result, err := Format(`<ul><li>One</li></ul>`, Options{Indent: "\t"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{"<html>\n", "\t<head>\n", "\t\t<ul>\n", "\t\t\t<li>\n", "\t\t\t\tOne\n"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result)
		}
	}
}

func TestFormat_PreservesPreformattedContent(t *testing.T) {
	input := "<body><pre>  a\n    b</pre><script>if (a < b) { x(); }</script></body>"
	result, err := Format(input, Options{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !strings.Contains(result, "<pre>  a\n    b</pre>") {
		t.Errorf("pre content changed:\n%s", result)
	}
	if !strings.Contains(result, "<script>if (a < b) { x(); }</script>") {
		t.Errorf("script content changed:\n%s", result)
	}
}

func TestFormat_VoidElementsDoNotNest(t *testing.T) {
	result, err := Format(`<body><img src="a.png"><br><p>after</p></body>`, Options{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{
		`    <img src="a.png">` + "\n",
		"    <br>\n",
		"    <p>\n",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in output:\n%s", want, result)
		}
	}
	if strings.Contains(result, "</img>") || strings.Contains(result, "</br>") {
		t.Errorf("void elements must not be closed:\n%s", result)
	}
}

func TestFormat_CollapsesWhitespaceAndEscapes(t *testing.T) {
	result, err := Format("<body><p>  a   &lt;b&gt;\n\n c </p><p title='x \"y\"'> </p></body>", Options{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !strings.Contains(result, "      a &lt;b&gt; c\n") {
		t.Errorf("expected collapsed, escaped text:\n%s", result)
	}
	if !strings.Contains(result, `<p title="x &#34;y&#34;">`) {
		t.Errorf("expected escaped attribute:\n%s", result)
	}
}

func TestFormat_Comments(t *testing.T) {
	input := `<body><!-- note --><p>x</p></body>`

	kept, err := Format(input, Options{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(kept, "    <!-- note -->\n") {
		t.Errorf("expected comment to be kept:\n%s", kept)
	}

	dropped, err := Format(input, Options{DropComments: true})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(dropped, "note") {
		t.Errorf("expected comment to be dropped:\n%s", dropped)
	}
}
