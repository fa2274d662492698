package index

import (
	"testing"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

func buildTree(t *testing.T) *Index {
	t.Helper()
	x := newSequential()
	for _, p := range []string{"b/z.txt", "b/a.txt", "a.txt", "c/d/e.txt"} {
		if _, _, _, err := x.AddFile(p, ""); err != nil {
			t.Fatalf("AddFile(%q) failed: %v", p, err)
		}
	}
	return x
}

func TestTraverseByIDVisitsEverything(t *testing.T) {
	x := buildTree(t)
	seen := make(map[string]string)
	x.TraverseByID(func(pathID, path string, item *domain.Item) {
		seen[path] = pathID
	})
	want := []string{"b", "b/z.txt", "b/a.txt", "a.txt", "c", "c/d", "c/d/e.txt"}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d items, got %d: %v", len(want), len(seen), seen)
	}
	for _, p := range want {
		id, ok := seen[p]
		if !ok {
			t.Errorf("Missing %q", p)
			continue
		}
		if _, got, ok := x.WalkByPath(p); !ok || got != id {
			t.Errorf("Traversal id %q for %q disagrees with WalkByPath %q", id, p, got)
		}
	}
}

func TestTraverseByIDSorted(t *testing.T) {
	x := buildTree(t)
	var order []string
	var childs []bool
	x.TraverseByIDSorted(func(pathID, path string, item *domain.Item, hasChilds bool) {
		order = append(order, path)
		childs = append(childs, hasChilds)
	})
	want := []string{"b", "b/a.txt", "b/z.txt", "c", "c/d", "c/d/e.txt", "a.txt"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], order[i])
		}
	}
	if !childs[0] || childs[1] {
		t.Errorf("Unexpected child flags %v", childs)
	}
}

func TestTraverseChildsByID(t *testing.T) {
	x := buildTree(t)
	type child struct {
		typ   domain.ItemType
		name  string
		count int
	}
	var got []child
	ok := x.TraverseChildsByID("", func(typ domain.ItemType, name, pathID string, item *domain.Item, numChilds int) {
		got = append(got, child{typ, name, numChilds})
	})
	if !ok {
		t.Fatal("Expected root listing to succeed")
	}
	want := []child{
		{domain.ItemTypeDir, "b", 2},
		{domain.ItemTypeDir, "c", 1},
		{domain.ItemTypeFile, "a.txt", 0},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	_, bID, _ := x.WalkByPath("b")
	var names []string
	x.TraverseChildsByID(bID, func(_ domain.ItemType, name, pathID string, _ *domain.Item, _ int) {
		names = append(names, name)
		if _, p, _ := x.WalkByID(pathID); p != "b/"+name {
			t.Errorf("Child path id %q resolves to %q", pathID, p)
		}
	})
	if len(names) != 2 || names[0] != "a.txt" {
		t.Errorf("Unexpected children of b: %v", names)
	}

	_, fileID, _ := x.WalkByPath("a.txt")
	if x.TraverseChildsByID(fileID, func(domain.ItemType, string, string, *domain.Item, int) {}) {
		t.Error("Expected listing a file to fail")
	}
}

func TestTraverseFrom(t *testing.T) {
	x := buildTree(t)
	_, cID, _ := x.WalkByPath("c")
	var paths []string
	if !x.TraverseFrom(cID, func(_, path string, _ *domain.Item) { paths = append(paths, path) }) {
		t.Fatal("Expected TraverseFrom to succeed")
	}
	if len(paths) != 3 || paths[0] != "c" {
		t.Errorf("Unexpected subtree %v", paths)
	}
	if x.TraverseFrom("99", func(string, string, *domain.Item) {}) {
		t.Error("Expected unknown id to fail")
	}
}

func TestIterateIDsIsRestartable(t *testing.T) {
	x := buildTree(t)
	count := func() int {
		n := 0
		for range x.IterateIDs() {
			n++
		}
		return n
	}
	if first, second := count(), count(); first != 7 || second != 7 {
		t.Errorf("Expected 7 items on both passes, got %d and %d", first, second)
	}

	n := 0
	for e := range x.IterateIDs() {
		if e.Node.Item() != e.Item {
			t.Error("Entry node and item disagree")
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("Expected early stop after 2, got %d", n)
	}
}

func TestForwardBackwardConsistency(t *testing.T) {
	x := buildTree(t)
	for e := range x.IterateIDs() {
		byPath, id, ok := x.WalkByPath(e.Path)
		if !ok {
			t.Fatalf("WalkByPath(%q) failed", e.Path)
		}
		byID, _, ok := x.WalkByID(id)
		if !ok || byID.Item() != byPath.Item() {
			t.Errorf("Views disagree for %q", e.Path)
		}
	}
	if err := x.Check(); err != nil {
		t.Errorf("Check failed: %v", err)
	}
}

func TestCheckDetectsDivergence(t *testing.T) {
	x := buildTree(t)
	n, _, _ := x.WalkByPath("a.txt")
	n.item.Name = "renamed-behind-the-index.txt"

	if err := x.Check(); err == nil {
		t.Error("Expected Check to report corruption")
	}
}

func TestCalculate(t *testing.T) {
	x := buildTree(t)
	for path, size := range map[string]int64{"b/z.txt": 10, "b/a.txt": 5, "c/d/e.txt": 100} {
		n, _, _ := x.WalkByPath(path)
		n.Item().SetSize(size)
	}
	n, _, _ := x.WalkByPath("c/d/e.txt")
	n.Item().SetVersionInfo("F20200101110000AM", domain.VersionInfo{MaxBlock: 0, Size: 2048})

	st := x.Calculate()
	if st.Items != 7 || st.Files != 4 || st.Dirs != 3 {
		t.Errorf("Unexpected counts %+v", st)
	}
	if st.SizeFiles != 115 {
		t.Errorf("Expected file size 115, got %d", st.SizeFiles)
	}
	// b=15, c=100, c/d=100
	if st.SizeFolders != 215 {
		t.Errorf("Expected folder size 215, got %d", st.SizeFolders)
	}
	if st.SizeBackups != 2048 {
		t.Errorf("Expected backup size 2048, got %d", st.SizeBackups)
	}
	b, _, _ := x.WalkByPath("b")
	if b.Item().Size != 15 {
		t.Errorf("Expected dir size 15, got %d", b.Item().Size)
	}
}
