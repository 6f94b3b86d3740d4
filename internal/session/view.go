package session

import (
	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/types"
	"github.com/matthewbaird/plotconfig/internal/validator"
)

// AxisView is the resolver state of one axis as the UI consumes it.
type AxisView struct {
	Value     types.Dimension `json:"value"`
	Options   *options.Set    `json:"options"`
	IsLoading bool            `json:"is_loading"`
}

// View is a point-in-time rendering of a session.
type View struct {
	SessionID  string              `json:"session_id"`
	Config     types.PlotConfig    `json:"config"`
	Axes       map[string]AxisView `json:"axes"`
	IsComplete bool                `json:"is_complete"`
	Missing    []string            `json:"missing,omitempty"`
	CanUndo    bool                `json:"can_undo"`
	CanRedo    bool                `json:"can_redo"`
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	cfg := s.cfg.Clone()
	v := View{
		SessionID: s.ID,
		Config:    cfg,
		Axes:      make(map[string]AxisView, len(s.axes)),
		CanUndo:   len(s.undo) > 0,
		CanRedo:   len(s.redo) > 0,
	}
	axes := make(map[string]*axis, len(s.axes))
	for k, a := range s.axes {
		axes[k] = a
	}
	s.mu.Unlock()

	for k, a := range axes {
		st := a.r.State()
		v.Axes[k] = AxisView{Value: st.Dimension, Options: st.Options, IsLoading: a.r.IsLoading()}
	}
	res := validator.Check(cfg)
	v.IsComplete = res.Complete
	v.Missing = res.Missing
	return v
}
