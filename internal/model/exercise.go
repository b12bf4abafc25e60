package model

// ExerciseDefinition is a user-defined exercise; all fields are comparable.
type ExerciseDefinition struct {
	ID           string `json:"id,omitempty"`
	LocalKey     string `json:"localKey,omitempty"`
	Name         string `json:"name"`
	MuscleGroup  string `json:"muscleGroup"`
	Subtype      string `json:"subtype,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Equipment    string `json:"equipment,omitempty"`
}

func (e ExerciseDefinition) Fingerprint() string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return "ex:" + e.Name + "|" + e.MuscleGroup
}
