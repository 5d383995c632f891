package jsonapi

// Graph indexes every resource of a document by "type:id".
type Graph struct {
	byKey map[string]Resource
}

func NewGraph(doc *Document) *Graph {
	g := &Graph{byKey: make(map[string]Resource)}
	if doc == nil {
		return g
	}
	for _, res := range doc.Included {
		g.add(res)
	}
	for _, res := range doc.Data {
		g.add(res)
	}
	return g
}

func (g *Graph) add(res Resource) {
	ref := res.Ref()
	if !ref.Valid() {
		return
	}
	if existing, ok := g.byKey[ref.Key()]; ok && existing.Embedded() && !res.Embedded() {
		return
	}
	g.byKey[ref.Key()] = res
}

func (g *Graph) Len() int {
	return len(g.byKey)
}

func (g *Graph) Get(ref Ref) (Resource, bool) {
	res, ok := g.byKey[ref.Key()]
	return res, ok
}

// Resolve returns the full form of a linked resource: the linked entry itself
// when it is embedded, otherwise the indexed one.
func (g *Graph) Resolve(linked Resource) (Resource, bool) {
	if linked.Embedded() {
		return linked, true
	}
	if !linked.Ref().Valid() {
		return Resource{}, false
	}
	return g.Get(linked.Ref())
}

// Related resolves every resource linked under rel, skipping unresolvable refs.
func (g *Graph) Related(res Resource, rel string) []Resource {
	relationship, ok := res.Relationships[rel]
	if !ok {
		return nil
	}
	var out []Resource
	for _, linked := range relationship.Data {
		if full, ok := g.Resolve(linked); ok {
			out = append(out, full)
		}
	}
	return out
}

// First resolves the first resource linked under rel.
func (g *Graph) First(res Resource, rel string) (Resource, bool) {
	relationship, ok := res.Relationships[rel]
	if !ok || len(relationship.Data) == 0 {
		return Resource{}, false
	}
	return g.Resolve(relationship.Data[0])
}

// RelatedIn resolves resources linked under each named relationship in
// order, keeping the first occurrence of each resource.
func (g *Graph) RelatedIn(res Resource, names ...string) []Resource {
	seen := make(map[string]bool)
	var out []Resource
	for _, name := range names {
		for _, r := range g.Related(res, name) {
			if seen[r.Ref().Key()] {
				continue
			}
			seen[r.Ref().Key()] = true
			out = append(out, r)
		}
	}
	return out
}

// Filter returns indexed resources matching fn.
func Filter(resources []Resource, fn func(Resource) bool) []Resource {
	var out []Resource
	for _, r := range resources {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}
