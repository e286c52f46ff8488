package domain

// Message is one side of a prior exchange kept as extractor context.
type Message struct {
	Role    string
	Content string
}
