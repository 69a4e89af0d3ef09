package metrics

type Return struct {
	sum float64
}

func NewReturn() *Return { return &Return{} }

func (r *Return) Name() string          { return "return" }
func (r *Return) Observe(tr Transition) { r.sum += tr.Reward }
func (r *Return) Value() float64        { return r.sum }
func (r *Return) Reset()                { r.sum = 0 }

type EpisodeLength struct {
	steps int
}

func NewEpisodeLength() *EpisodeLength { return &EpisodeLength{} }

func (l *EpisodeLength) Name() string       { return "length" }
func (l *EpisodeLength) Observe(Transition) { l.steps++ }
func (l *EpisodeLength) Value() float64     { return float64(l.steps) }
func (l *EpisodeLength) Reset()             { l.steps = 0 }
