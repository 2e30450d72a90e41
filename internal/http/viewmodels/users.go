package viewmodels

type UsersAlert struct {
	Title       string
	Message     string
	Destructive bool
}

// UsersRow is one table row. Editing rows render DraftName and DraftEmail in
// inline inputs instead of the stored values.
type UsersRow struct {
	ID         string
	Name       string
	Email      string
	IsAdmin    bool
	Editing    bool
	DraftName  string
	DraftEmail string
	CanDelete  bool
}

type UsersDeleteViewData struct {
	ID    string
	Name  string
	Email string
}

type UsersViewData struct {
	Layout     LayoutData
	Rows       []UsersRow
	HasUsers   bool
	EditingID  string
	LoadError  *UsersAlert
	OpenDelete bool
	Delete     UsersDeleteViewData
}
