// Package kakitori provides the core types shared by the kanji practice game.
package kakitori

// Point is a position in canvas-local pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous press-move-release gesture.
type Stroke struct {
	Points []Point `json:"points"`
}

// Problem is a single fill-in-the-kanji question.
type Problem struct {
	ID       string `json:"id"`       // Random identifier, unique per parse
	Sentence string `json:"sentence"` // Raw sentence with bracket notation, e.g. "[にち]ようび"
	Pre      string `json:"pre"`      // Text before the blank
	Reading  string `json:"reading"`  // Reading shown as the hint, e.g. "にち"
	Post     string `json:"post"`     // Text after the blank
	Kanji    string `json:"kanji"`    // The expected character, e.g. "日"
}

// Candidate is one ranked guess kept alongside a round outcome.
type Candidate struct {
	Char  string  `json:"char"`
	Score float64 `json:"score"` // Probability x 100
}

// RoundResult is the outcome of one problem within a game.
type RoundResult struct {
	Problem    Problem     `json:"problem"`
	Correct    bool        `json:"correct"`
	Skipped    bool        `json:"skipped,omitempty"`
	Attempts   int         `json:"attempts"`             // Judge requests made for this problem
	Candidates []Candidate `json:"candidates,omitempty"` // Candidates of the last judgment
}
