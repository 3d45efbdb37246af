package scanner

import (
	"testing"

	"github.com/reelscan/reelscan/internal/metadata"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     metadata.FileType
		wantOK   bool
	}{
		// Video
		{"movie.mkv", metadata.FileTypeVideo, true},
		{"movie.MKV", metadata.FileTypeVideo, true},
		{"movie.mp4", metadata.FileTypeVideo, true},
		{"movie.m2ts", metadata.FileTypeVideo, true},
		{"movie.iso", metadata.FileTypeVideo, true},

		// Artwork
		{"poster.jpg", metadata.FileTypeImage, true},
		{"fanart.JPEG", metadata.FileTypeImage, true},
		{"folder.png", metadata.FileTypeImage, true},
		{"movie.tbn", metadata.FileTypeImage, true},

		{"movie.nfo", metadata.FileTypeNFO, true},

		// Not indexed
		{"movie.txt", "", false},
		{"movie.srt", "", false},
		{"movie.rar", "", false},
		{"movie", "", false},
		{"", "", false},
		{"movie.mkv.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := Classify(tt.filename)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Classify(%q) = %q, %v, want %q, %v", tt.filename, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"Movie.With.Dots.In.Name.mkv", true},
		{".mkv", true},
		{"movie.jpg", false},
		{"movie.nfo", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := IsVideoFile(tt.filename); got != tt.want {
				t.Errorf("IsVideoFile(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsExtraFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"movie-sample.mkv", true},
		{"Movie.SAMPLE.mkv", true},
		{"movie-trailer.mp4", true},
		{"proof.mkv", true},
		{"movie.mkv", false},
		{"The.Matrix.1999.mkv", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := IsExtraFile(tt.filename); got != tt.want {
				t.Errorf("IsExtraFile(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}
