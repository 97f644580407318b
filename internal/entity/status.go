package entity

const (
	StatusIdle TaskStatus = iota
	StatusDownloading
	StatusSuccess
	// StatusError means the fetched content failed validation.
	StatusError
	// StatusFailed means the fetch itself failed.
	StatusFailed
)

type TaskStatus int

func (s TaskStatus) String() string {
	if s < StatusIdle || s > StatusFailed {
		return "Unknown"
	}

	return [...]string{"Idle", "Downloading", "Success", "Error", "Failed"}[s]
}

// StatusRegister is a single slot holding the outcome of the most recently started task.
// Every Begin bumps the generation so a superseded task cannot overwrite a newer one.
type StatusRegister struct {
	Status     TaskStatus
	Generation uint64
}

func (r *StatusRegister) Begin() uint64 {
	r.Generation++
	r.Status = StatusDownloading

	return r.Generation
}

// Finish stores status if gen is still the current generation and reports whether it did.
func (r *StatusRegister) Finish(gen uint64, status TaskStatus) bool {
	if gen != r.Generation {
		return false
	}
	r.Status = status

	return true
}
