package location

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPath  string
		wantQuery string
	}{
		{
			name:     "root",
			input:    "/",
			wantPath: "/",
		},
		{
			name:     "simple path",
			input:    "/about",
			wantPath: "/about",
		},
		{
			name:     "trailing slash dropped",
			input:    "/projects/123/",
			wantPath: "/projects/123",
		},
		{
			name:     "collapse slashes",
			input:    "/blog//post",
			wantPath: "/blog/post",
		},
		{
			name:     "single dot removed",
			input:    "/blog/./post",
			wantPath: "/blog/post",
		},
		{
			name:     "double dot resolves",
			input:    "/blog/posts/../other",
			wantPath: "/blog/other",
		},
		{
			name:     "double dot to root",
			input:    "/blog/../",
			wantPath: "/",
		},
		{
			name:      "query preserved",
			input:     "/projects/123?tab=details",
			wantPath:  "/projects/123",
			wantQuery: "tab=details",
		},
		{
			name:      "query untouched by canonicalization",
			input:     "/projects/123/?tab=details",
			wantPath:  "/projects/123",
			wantQuery: "tab=details",
		},
		{
			name:      "query escapes not validated",
			input:     "/projects?bad=%GG",
			wantPath:  "/projects",
			wantQuery: "bad=%GG",
		},
		{
			name:     "valid percent escapes kept encoded",
			input:    "/path/%2Fok",
			wantPath: "/path/%2Fok",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error = %v", tc.input, err)
			}
			if loc.Path() != tc.wantPath {
				t.Errorf("Parse(%q).Path() = %q, want %q", tc.input, loc.Path(), tc.wantPath)
			}
			if loc.RawQuery() != tc.wantQuery {
				t.Errorf("Parse(%q).RawQuery() = %q, want %q", tc.input, loc.RawQuery(), tc.wantQuery)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:    "missing leading slash",
			input:   "about",
			wantErr: ErrNotRooted,
		},
		{
			name:    "http URL",
			input:   "http://evil.example/path",
			wantErr: ErrAbsoluteURL,
		},
		{
			name:    "https URL",
			input:   "https://evil.example/path",
			wantErr: ErrAbsoluteURL,
		},
		{
			name:    "protocol-relative URL",
			input:   "//evil.example/path",
			wantErr: ErrAbsoluteURL,
		},
		{
			name:    "backslash",
			input:   `/path\with\backslash`,
			wantErr: ErrBackslash,
		},
		{
			name:    "null byte literal",
			input:   "/path/\x00/null",
			wantErr: ErrNullByte,
		},
		{
			name:    "null byte encoded",
			input:   "/path/%00/null",
			wantErr: ErrNullByte,
		},
		{
			name:    "incomplete percent escape",
			input:   "/path/%2",
			wantErr: ErrBadEscape,
		},
		{
			name:    "bad percent escape",
			input:   "/path/%GG",
			wantErr: ErrBadEscape,
		},
		{
			name:    "escape root",
			input:   "/../secret",
			wantErr: ErrEscapesRoot,
		},
		{
			name:    "deep escape root",
			input:   "/a/../../secret",
			wantErr: ErrEscapesRoot,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err != tc.wantErr {
				t.Errorf("Parse(%q) error = %v, want %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestFull(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "/", want: "/"},
		{input: "/settings", want: "/settings"},
		{input: "/family/1?tab=people", want: "/family/1?tab=people"},
		{input: "/a//b/?x=1", want: "/a/b?x=1"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			loc := MustParse(tc.input)
			if loc.Full() != tc.want {
				t.Errorf("Full() = %q, want %q", loc.Full(), tc.want)
			}
			if loc.String() != tc.want {
				t.Errorf("String() = %q, want %q", loc.String(), tc.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("/family/1?tab=people")
	b := MustParse("/family/1/?tab=people")
	if !a.Equal(b) {
		t.Errorf("locations %q and %q should be equal after canonicalization", a, b)
	}

	c := MustParse("/family/1")
	if a.Equal(c) {
		t.Errorf("locations %q and %q differ by query and must not be equal", a, c)
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "/", want: nil},
		{input: "/about", want: []string{"about"}},
		{input: "/family/1/person/2", want: []string{"family", "1", "person", "2"}},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := MustParse(tc.input).Segments()
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Segments() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQueryValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "no query",
			input: "/settings",
			want:  nil,
		},
		{
			name:  "single pair",
			input: "/settings?tab=profile",
			want:  map[string]string{"tab": "profile"},
		},
		{
			name:  "multiple pairs",
			input: "/search?q=go&page=2",
			want:  map[string]string{"q": "go", "page": "2"},
		},
		{
			name:  "first value wins",
			input: "/search?q=first&q=second",
			want:  map[string]string{"q": "first"},
		},
		{
			name:  "empty value kept",
			input: "/search?q=",
			want:  map[string]string{"q": ""},
		},
		{
			name:  "malformed pair dropped",
			input: "/search?ok=1&bad=%GG",
			want:  map[string]string{"ok": "1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MustParse(tc.input).QueryValues()
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("QueryValues() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecodeSegment(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		splat   bool
		want    string
		wantErr error
	}{
		{
			name:    "plain segment",
			segment: "people",
			want:    "people",
		},
		{
			name:    "encoded space",
			segment: "de%20Vries",
			want:    "de Vries",
		},
		{
			name:    "encoded slash rejected for single segment",
			segment: "a%2Fb",
			wantErr: ErrEncodedSlash,
		},
		{
			name:    "encoded slash allowed for splat",
			segment: "a%2Fb",
			splat:   true,
			want:    "a/b",
		},
		{
			name:    "invalid escape",
			segment: "bad%ZZ",
			wantErr: ErrBadEscape,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeSegment(tc.segment, tc.splat)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Errorf("DecodeSegment(%q, %v) error = %v, want %v", tc.segment, tc.splat, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeSegment(%q, %v) unexpected error = %v", tc.segment, tc.splat, err)
			}
			if got != tc.want {
				t.Errorf("DecodeSegment(%q, %v) = %q, want %q", tc.segment, tc.splat, got, tc.want)
			}
		})
	}
}

func TestSplitPathQuery(t *testing.T) {
	tests := []struct {
		input     string
		wantPath  string
		wantQuery string
	}{
		{input: "/path?query=value", wantPath: "/path", wantQuery: "query=value"},
		{input: "/path", wantPath: "/path", wantQuery: ""},
		{input: "/path?", wantPath: "/path", wantQuery: ""},
		{input: "/path?a=1&b=2", wantPath: "/path", wantQuery: "a=1&b=2"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			gotPath, gotQuery := SplitPathQuery(tc.input)
			if gotPath != tc.wantPath {
				t.Errorf("SplitPathQuery(%q) path = %q, want %q", tc.input, gotPath, tc.wantPath)
			}
			if gotQuery != tc.wantQuery {
				t.Errorf("SplitPathQuery(%q) query = %q, want %q", tc.input, gotQuery, tc.wantQuery)
			}
		})
	}
}
