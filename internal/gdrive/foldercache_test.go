package gdrive

import "testing"

func TestFolderCache(t *testing.T) {
	c := newFolderCache()

	if _, ok := c.Get("root/Aksi - 20 Jan 2025"); ok {
		t.Fatalf("empty cache should miss")
	}

	c.Set("root/Aksi - 20 Jan 2025", "folder-1")

	id, ok := c.Get("root/Aksi - 20 Jan 2025")

	if !ok || id != "folder-1" {
		t.Fatalf("got (%q, %v), want (folder-1, true)", id, ok)
	}

	// same name under a different parent is a different entry
	if _, ok := c.Get("other/Aksi - 20 Jan 2025"); ok {
		t.Fatalf("parent must be part of the key")
	}

	c.Clear()

	if _, ok := c.Get("root/Aksi - 20 Jan 2025"); ok {
		t.Fatalf("cache should be empty after Clear")
	}
}

func TestEscapeQuery(t *testing.T) {
	got := escapeQuery(`Event's "Day" \ 2025`)

	want := `Event\'s "Day" \\ 2025`

	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
