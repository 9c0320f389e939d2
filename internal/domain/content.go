package domain

// CodeState is the latest known code buffer and its declared language.
type CodeState struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// ChatMessage is a single room chat entry.
type ChatMessage struct {
	Author DisplayName `json:"author"`
	Body   string      `json:"body"`
}
