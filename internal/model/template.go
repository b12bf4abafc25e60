package model

import "slices"

type ProgramTemplate struct {
	ID       string        `json:"id,omitempty"`
	LocalKey string        `json:"localKey,omitempty"`
	Name     string        `json:"name"`
	Weeks    []ProgramWeek `json:"weeks"`
}

type ProgramWeek struct {
	Days []ProgramDay `json:"days"`
}

type ProgramDay struct {
	Name      string         `json:"name"`
	Exercises []Prescription `json:"exercises"`
}

type Prescription struct {
	Exercise string `json:"exercise"`
	Sets     int    `json:"sets"`
	Reps     string `json:"reps"`
	Notes    string `json:"notes,omitempty"`
}

func (t ProgramTemplate) Fingerprint() string {
	if t.ID != "" {
		return "id:" + t.ID
	}
	return "tpl:" + t.Name
}

func (t ProgramTemplate) Equal(o ProgramTemplate) bool {
	return t.ID == o.ID &&
		t.LocalKey == o.LocalKey &&
		t.Name == o.Name &&
		slices.EqualFunc(t.Weeks, o.Weeks, func(a, b ProgramWeek) bool {
			return slices.EqualFunc(a.Days, b.Days, func(x, y ProgramDay) bool {
				return x.Name == y.Name && slices.Equal(x.Exercises, y.Exercises)
			})
		})
}

func (t ProgramTemplate) Clone() ProgramTemplate {
	c := t
	c.Weeks = slices.Clone(t.Weeks)
	for i := range c.Weeks {
		days := slices.Clone(c.Weeks[i].Days)
		for j := range days {
			days[j].Exercises = slices.Clone(days[j].Exercises)
		}
		c.Weeks[i].Days = days
	}
	return c
}
