package planner

import (
	"context"
	"errors"
	"sync"

	"studyplan/internal/api"
	"studyplan/internal/models"
)

// DialogState is the lifecycle stage of the generation dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
	DialogSuccess
	DialogError
)

func (s DialogState) String() string {
	switch s {
	case DialogClosed:
		return "closed"
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	case DialogSuccess:
		return "success"
	case DialogError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrDialogClosed is returned by Submit when the dialog has not been opened.
var ErrDialogClosed = errors.New("generation dialog is not open")

// Dialog collects generation parameters and submits them through a Planner.
type Dialog struct {
	planner *Planner

	mu     sync.Mutex
	state  DialogState
	params models.GenerateScheduleParams
	err    error
	result models.GeneratedScheduleResult
}

func NewDialog(p *Planner) *Dialog {
	return &Dialog{planner: p, params: models.DefaultGenerateScheduleParams()}
}

// Open shows the dialog with default parameters. Opening an already visible
// dialog keeps the values entered so far.
func (d *Dialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.visible() {
		return
	}
	d.state = DialogOpen
	d.params = models.DefaultGenerateScheduleParams()
	d.err = nil
}

// Cancel closes the dialog unless a submission is in flight.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DialogSubmitting {
		return
	}
	d.state = DialogClosed
	d.err = nil
}

// SetParams replaces the parameters being edited.
func (d *Dialog) SetParams(params models.GenerateScheduleParams) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

func (d *Dialog) Params() models.GenerateScheduleParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

func (d *Dialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Visible reports whether the dialog is shown to the user.
func (d *Dialog) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible()
}

func (d *Dialog) visible() bool {
	return d.state == DialogOpen || d.state == DialogSubmitting || d.state == DialogError
}

// Err returns the error shown in the dialog, if any.
func (d *Dialog) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ErrorMessage returns the user-facing text of the dialog's error.
func (d *Dialog) ErrorMessage() string {
	err := d.Err()
	if err == nil {
		return ""
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return api.UserMessage(err)
}

// Result returns the acknowledgement of the last successful submission.
func (d *Dialog) Result() models.GeneratedScheduleResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Submit validates and sends the current parameters. A validation failure
// leaves the dialog open with the field error; a request failure moves it to
// DialogError so the user can retry.
func (d *Dialog) Submit(ctx context.Context) (models.GeneratedScheduleResult, error) {
	d.mu.Lock()
	switch d.state {
	case DialogSubmitting:
		d.mu.Unlock()
		return models.GeneratedScheduleResult{}, ErrGenerationInProgress
	case DialogClosed, DialogSuccess:
		d.mu.Unlock()
		return models.GeneratedScheduleResult{}, ErrDialogClosed
	}
	params := d.params
	if err := params.Validate(); err != nil {
		d.state = DialogOpen
		d.err = err
		d.mu.Unlock()
		return models.GeneratedScheduleResult{}, err
	}
	d.state = DialogSubmitting
	d.err = nil
	d.mu.Unlock()

	res, err := d.planner.Generate(ctx, params)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = DialogError
		d.err = err
		return models.GeneratedScheduleResult{}, err
	}
	d.state = DialogSuccess
	d.result = res
	return res, nil
}
