package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("json with numeric and string indexes", func(t *testing.T) {
		path := writeFile(t, "reports.json", `[
			{"index": 12, "description": "Crash on save", "image_url": "http://x/12.jpg"},
			{"index": "13", "description": "Typo on login"}
		]`)
		reports, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(reports) != 2 || reports[0].Index != "12" || reports[1].Index != "13" {
			t.Errorf("reports = %+v", reports)
		}
		if reports[0].ImageURL != "http://x/12.jpg" {
			t.Errorf("ImageURL = %q", reports[0].ImageURL)
		}
	})

	t.Run("csv", func(t *testing.T) {
		path := writeFile(t, "reports.csv", "index,description,image_url\n1,\"Button, misaligned\",http://x/1.jpg\n2,Blank screen,\n")
		reports, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(reports) != 2 || reports[0].Description != "Button, misaligned" || reports[1].ImageURL != "" {
			t.Errorf("reports = %+v", reports)
		}
	})

	t.Run("sniffs format without extension", func(t *testing.T) {
		path := writeFile(t, "reports", `[{"index": "a", "description": "x"}]`)
		reports, err := Load(path)
		if err != nil || len(reports) != 1 {
			t.Errorf("Load() = %v, %v", reports, err)
		}
	})

	t.Run("rejects duplicates and missing index", func(t *testing.T) {
		dup := writeFile(t, "dup.json", `[{"index": 1, "description": "a"}, {"index": "1", "description": "b"}]`)
		if _, err := Load(dup); err == nil {
			t.Error("expected duplicate index error")
		}
		missing := writeFile(t, "missing.json", `[{"description": "a"}]`)
		if _, err := Load(missing); err == nil {
			t.Error("expected missing index error")
		}
		noCol := writeFile(t, "nocol.csv", "id,description\n1,x\n")
		if _, err := Load(noCol); err == nil {
			t.Error("expected missing column error")
		}
	})

	t.Run("rejects indexes outside the image directory", func(t *testing.T) {
		for name, content := range map[string]string{
			"parent.json":   `[{"index": "../../x", "description": "a"}]`,
			"nested.csv":    "index,description\nshots/1,a\n",
			"backslash.csv": "index,description\n..\\x,a\n",
			"dotdot.json":   `[{"index": "..", "description": "a"}]`,
		} {
			if _, err := Load(writeFile(t, name, content)); err == nil {
				t.Errorf("%s: expected invalid index error", name)
			}
		}
	})
}

func TestValidateIndex(t *testing.T) {
	tests := []struct {
		index   string
		wantErr bool
	}{
		{"42", false},
		{"report-7", false},
		{"a..b", false},
		{"", true},
		{".", true},
		{"..", true},
		{"../x", true},
		{"a/b", true},
		{`a\b`, true},
		{"a\x00b", true},
	}
	for _, tt := range tests {
		if err := ValidateIndex(tt.index); (err != nil) != tt.wantErr {
			t.Errorf("ValidateIndex(%q) error = %v, wantErr %v", tt.index, err, tt.wantErr)
		}
	}
}

func TestLoadLabels(t *testing.T) {
	jsonPath := writeFile(t, "labels.json", `{"1": true, "2": false}`)
	labels, err := LoadLabels(jsonPath)
	if err != nil {
		t.Fatalf("LoadLabels() error = %v", err)
	}
	if !labels["1"] || labels["2"] || len(labels) != 2 {
		t.Errorf("labels = %v", labels)
	}

	csvPath := writeFile(t, "labels.csv", "index,consistent\n1,true\n2,0\n")
	labels, err = LoadLabels(csvPath)
	if err != nil {
		t.Fatalf("LoadLabels() error = %v", err)
	}
	if !labels["1"] || labels["2"] {
		t.Errorf("labels = %v", labels)
	}

	bad := writeFile(t, "bad.csv", "index,consistent\n1,maybe\n")
	if _, err := LoadLabels(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(ImagePath(dir, "5"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	reports := WithImages([]Report{{Index: "5"}, {Index: "6"}, {Index: "7", ImagePath: "/elsewhere.jpg"}}, dir)
	data, err := reports[0].ReadImage()
	if err != nil || string(data) != "jpeg" {
		t.Errorf("ReadImage() = %q, %v", data, err)
	}
	if _, err := reports[1].ReadImage(); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("error = %v, want ErrAssetMissing", err)
	}
	if reports[2].ImagePath != "/elsewhere.jpg" {
		t.Error("existing image path overwritten")
	}
	if _, err := (Report{Index: "8"}).ReadImage(); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("error = %v, want ErrAssetMissing", err)
	}
}
