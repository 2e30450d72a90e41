package viewmodels

// ToastViewData is a one-shot notification shown by the layout.
type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
