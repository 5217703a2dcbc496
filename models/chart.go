package models

// ChartPoint is the evaluation recorded after one committed move.
type ChartPoint struct {
	Ply     int    `json:"ply"`
	SAN     string `json:"san"`
	Eval    int    `json:"eval"` // centipawns, White's view
	HasEval bool   `json:"has_eval"`
}

// Chart is the evaluation history of one game.
type Chart struct {
	GameID string       `json:"game_id"`
	Points []ChartPoint `json:"points"`
}

func (c *Chart) Reset(gameID string) {
	c.GameID = gameID
	c.Points = nil
}

func (c *Chart) Append(p ChartPoint) {
	c.Points = append(c.Points, p)
}

// Truncate keeps only points for the first plies moves.
func (c *Chart) Truncate(plies int) {
	if plies < 0 {
		plies = 0
	}
	if plies < len(c.Points) {
		c.Points = c.Points[:plies]
	}
}

func (c Chart) Copy() Chart {
	c.Points = append([]ChartPoint(nil), c.Points...)
	return c
}
