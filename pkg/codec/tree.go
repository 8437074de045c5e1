package codec

import (
	"fmt"

	"github.com/arthur-debert/tablepatch/pkg/table"
)

const treeMagic = "HTB1"

// Node is a root record of a tree table. Its children are Records.
type Node struct {
	Key      string
	Data     []byte
	Children []table.Entry
}

func (n *Node) Index() string { return n.Key }
func (n *Node) SetIndex(index string) { n.Key = index }
func (n *Node) SubEntries() []table.Entry { return n.Children }
func (n *Node) SetSubEntries(entries []table.Entry) { n.Children = entries }

type treeCodec struct{}

// TreeKind returns the hierarchical tree kind.
func TreeKind() *Kind {
	return &Kind{
		Name:         "tree",
		Extensions:   []string{".htb"},
		Codec:        treeCodec{},
		Hierarchical: true,
		NewRoot: func(_ string, incoming table.Parent) table.Parent {
			root := &Node{Key: incoming.Index()}
			if n, ok := incoming.(*Node); ok && len(n.Data) > 0 {
				root.Data = append([]byte(nil), n.Data...)
			}
			return root
		},
	}
}

func (treeCodec) Decode(data []byte) (table.Table, error) {
	r := newReader(data)
	r.expectMagic(treeMagic)
	t := table.NewSectioned()
	sections := r.u16()
	for s := 0; s < sections && r.err == nil; s++ {
		name := r.str()
		n := r.u32()
		var roots []table.Entry
		for i := 0; i < n && r.err == nil; i++ {
			node := &Node{Key: r.str(), Data: r.blob()}
			c := r.u32()
			for j := 0; j < c && r.err == nil; j++ {
				node.Children = append(node.Children, readRecord(r))
			}
			roots = append(roots, node)
		}
		t.SetEntries(name, roots)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return t, nil
}

func (treeCodec) Encode(t table.Table) ([]byte, error) {
	w := &writer{}
	w.magic(treeMagic)
	sections := t.Sections()
	w.u16(len(sections))
	for _, name := range sections {
		roots, _ := t.Entries(name)
		w.str(name)
		w.u32(len(roots))
		for _, e := range roots {
			node, ok := e.(*Node)
			if !ok {
				return nil, fmt.Errorf("section %q: unexpected root type %T", name, e)
			}
			w.str(node.Key)
			w.blob(node.Data)
			w.u32(len(node.Children))
			for _, c := range node.Children {
				rec, ok := c.(*Record)
				if !ok {
					return nil, fmt.Errorf("root %q: unexpected child type %T", node.Key, c)
				}
				writeRecord(w, rec)
			}
		}
	}
	return w.bytes()
}
