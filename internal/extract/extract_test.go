package extract

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTMLText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "body text",
			in:   "<html><head><title>Ignored</title></head><body><h1>Title</h1><p>Hello <b>world</b>.</p></body></html>",
			want: "Title Hello world .",
		},
		{
			name: "skips scripts and styles",
			in:   "<body><script>var x = 1;</script><style>p{}</style><noscript>enable js</noscript><p>Visible</p></body>",
			want: "Visible",
		},
		{
			name: "collapses whitespace",
			in:   "<body>\n\n  Lots   of\n\tspace  \n</body>",
			want: "Lots of space",
		},
		{
			name: "fragment",
			in:   "<p>one</p><p>two</p>",
			want: "one two",
		},
		{
			name: "entities decoded",
			in:   "<p>Q&amp;A &lt;now&gt;</p>",
			want: "Q&A <now>",
		},
		{
			name: "empty",
			in:   "<body><script>only()</script></body>",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLText(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("HTMLText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HTMLText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
		ok      bool
	}{
		{"https://example.com/article", nil, true},
		{"  http://example.com  ", nil, true},
		{"ftp://example.com/file", ErrUnsupportedScheme, false},
		{"file:///etc/passwd", ErrUnsupportedScheme, false},
		{"example.com", ErrUnsupportedScheme, false},
		{"http://", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ValidateURL(tt.in)
			if tt.ok {
				if err != nil {
					t.Errorf("ValidateURL() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateURL() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateURL() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsReserved(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"224.0.0.1", true},
		{"93.184.216.34", false},
		{"8.8.8.8", false},
		{"2606:4700::1111", false},
	}
	for _, tt := range tests {
		if got := isReserved(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("isReserved(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><nav>Menu</nav><article>Read   this.</article><script>x()</script></body></html>"))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("  plain\n\ntext  "))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body></body></html>"))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewURLExtractor(AllowPrivate())

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"/page", "Menu Read this.", false},
		{"/plain", "plain text", false},
		{"/redirect", "Menu Read this.", false},
		{"/empty", "", true},
		{"/missing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := e.Extract(context.Background(), srv.URL+tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Extract() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBlocksPrivateAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer srv.Close()

	_, err := NewURLExtractor().Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("Extract() error = %v, want ErrPrivateAddress", err)
	}
}

func TestExtractMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	got, err := NewURLExtractor(AllowPrivate(), WithMaxBytes(10)).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{"notes.txt", []byte("Plain *text* file\n"), "Plain *text* file\n", nil},
		{"readme.md", []byte("# Title"), "# Title", nil},
		{"page.html", []byte("<body><p>From   HTML</p><script>no()</script></body>"), "From HTML", nil},
		{"blob.bin", []byte{0xff, 0xfe, 0x00, 0x80}, "", ErrBinaryFile},
		{"empty.txt", []byte("  \n"), "", ErrNoText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(writeFile(t, dir, tt.name, tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadFile() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := ReadFile(writeFile(t, dir, "broken.pdf", []byte("not a pdf"))); err == nil {
		t.Error("broken PDF should fail")
	}
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "doc.pdf", "main.go", filepath.Join("sub", "notes.md")} {
		writeFile(t, dir, name, []byte("x"))
	}

	files, err := FindFiles(dir, true)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	want := []string{filepath.Join("sub", "notes.md"), "doc.pdf", "a.txt", "b.txt"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("FindFiles() = %v, want %v", names, want)
	}
	if files[0].Ext != ".md" || files[0].Size != 1 {
		t.Errorf("files[0] = %+v", files[0])
	}
}

func TestSortFiles(t *testing.T) {
	files := []File{
		{Name: "z.txt", Ext: ".txt"},
		{Name: "a.txt", Ext: ".txt"},
		{Name: "m.pdf", Ext: ".pdf"},
	}
	SortFiles(files)
	if files[0].Name != "m.pdf" || files[1].Name != "a.txt" || files[2].Name != "z.txt" {
		t.Errorf("SortFiles() = %+v", files)
	}
}
