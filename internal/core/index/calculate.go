package index

// Stats are the aggregate counters of one namespace
type Stats struct {
	Items       int
	Files       int
	Dirs        int
	SizeFiles   int64
	SizeFolders int64
	SizeBackups int64
}

// Add accumulates o into s
func (s *Stats) Add(o Stats) {
	s.Items += o.Items
	s.Files += o.Files
	s.Dirs += o.Dirs
	s.SizeFiles += o.SizeFiles
	s.SizeFolders += o.SizeFolders
	s.SizeBackups += o.SizeBackups
}

// Calculate recomputes the aggregate counters in one pass and writes the
// recursive size of every directory back into its item. Unmeasured files
// do not contribute to directory sizes.
func (x *Index) Calculate() Stats {
	var st Stats
	var walk func(n *Node) int64
	walk = func(n *Node) int64 {
		var folder int64
		for _, c := range n.dir.byID {
			if c.IsDir() {
				folder += walk(c)
			} else if c.item.Exists() {
				folder += c.item.Size
			}
			st.count(c)
		}
		if n.item != nil {
			n.item.Size = folder
		}
		return folder
	}
	walk(x.root)
	return st
}

func (s *Stats) count(n *Node) {
	item := n.item
	s.Items++
	switch {
	case item.IsFile():
		s.Files++
		if item.Exists() {
			s.SizeFiles += item.Size
		}
	case item.IsDir():
		s.Dirs++
		if item.Exists() {
			s.SizeFolders += item.Size
		}
	}
	s.SizeBackups += item.TotalVersionSize()
}
