package shellquote_test

import (
	"testing"

	"ytbatch/pkg/shellquote"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bin  string
		args []string
		want string
	}{
		{
			name: "no args",
			bin:  "/app/bins/yt-dlp",
			want: "/app/bins/yt-dlp",
		},
		{
			name: "safe args stay bare",
			bin:  "yt-dlp",
			args: []string{"--merge-output-format", "mp4", "--no-playlist"},
			want: "yt-dlp --merge-output-format mp4 --no-playlist",
		},
		{
			name: "format selector with star and slash",
			bin:  "yt-dlp",
			args: []string{"-f", "bv*+ba/b"},
			want: `yt-dlp -f "bv*+ba/b"`,
		},
		{
			name: "output template with parens",
			bin:  "yt-dlp",
			args: []string{"-o", "/data/final_download/abc123.%(ext)s"},
			want: `yt-dlp -o "/data/final_download/abc123.%(ext)s"`,
		},
		{
			name: "url with query chars",
			bin:  "yt-dlp",
			args: []string{"https://www.youtube.com/watch?v=abc123&t=1"},
			want: `yt-dlp "https://www.youtube.com/watch?v=abc123&t=1"`,
		},
		{
			name: "embedded double quote and dollar are escaped",
			bin:  "yt-dlp",
			args: []string{`a"b$c`},
			want: `yt-dlp "a\"b\$c"`,
		},
		{
			name: "backslashes are escaped",
			bin:  "yt-dlp",
			args: []string{`C:\temp\file`},
			want: `yt-dlp "C:\\temp\\file"`,
		},
		{
			name: "empty arg",
			bin:  "yt-dlp",
			args: []string{""},
			want: `yt-dlp ""`,
		},
		{
			name: "newline is escaped",
			bin:  "yt-dlp",
			args: []string{"line1\nline2"},
			want: `yt-dlp "line1\nline2"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shellquote.Join(tt.bin, tt.args); got != tt.want {
				t.Fatalf("Join() mismatch\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}
