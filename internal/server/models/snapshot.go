package models

// Stage names one of the two parallel states of a node.
type Stage string

const (
	StageDraft Stage = "draft"
	StageLive  Stage = "live"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s == StageDraft || s == StageLive }

// ViewPolicy controls who may see a node.
type ViewPolicy string

const (
	ViewAnyone         ViewPolicy = "Anyone"
	ViewLoggedInUsers  ViewPolicy = "LoggedInUsers"
	ViewOnlyTheseUsers ViewPolicy = "OnlyTheseUsers"
)

// EditPolicy controls who may change a node.
type EditPolicy string

const (
	EditLoggedInUsers  EditPolicy = "LoggedInUsers"
	EditOnlyTheseUsers EditPolicy = "OnlyTheseUsers"
)

// Lifecycle status tags.
const (
	StatusNew       = "New"
	StatusSaved     = "Saved"
	StatusPublished = "Published"
)

// Snapshot holds a node's field values at one stage.
type Snapshot struct {
	NodeID string
	Stage  Stage

	// Version is the node counter value at the time this row was written.
	Version int64
	// SourceVersion is, for Live rows, the Draft version that was published.
	SourceVersion int64

	Segment   string
	Title     string
	MenuTitle string
	Content   string

	ShowInMenu   bool
	ShowInSearch bool

	ViewPolicy  ViewPolicy
	ViewerGroup string
	EditPolicy  EditPolicy
	EditorGroup string

	Status        string
	HasBrokenLink bool
	HasBrokenFile bool
}

// SameContent reports whether the user-visible fields of s and o match.
// Version bookkeeping and stage are ignored.
func (s *Snapshot) SameContent(o *Snapshot) bool {
	return len(s.DiffFields(o)) == 0
}

// DiffFields lists the names of user-visible fields that differ.
func (s *Snapshot) DiffFields(o *Snapshot) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("segment", s.Segment != o.Segment)
	add("title", s.Title != o.Title)
	add("menu_title", s.MenuTitle != o.MenuTitle)
	add("content", s.Content != o.Content)
	add("show_in_menu", s.ShowInMenu != o.ShowInMenu)
	add("show_in_search", s.ShowInSearch != o.ShowInSearch)
	add("view_policy", s.ViewPolicy != o.ViewPolicy)
	add("viewer_group", s.ViewerGroup != o.ViewerGroup)
	add("edit_policy", s.EditPolicy != o.EditPolicy)
	add("editor_group", s.EditorGroup != o.EditorGroup)
	return out
}
