package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringList stores a JSON array of strings in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}

	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// MedicalConcerns groups clinically relevant mentions extracted from feedback.
// Stored as a JSON object in a text column.
type MedicalConcerns struct {
	Symptoms             []string `json:"symptoms"`
	Complications        []string `json:"complications"`
	TreatmentSideEffects []string `json:"treatment_side_effects"`
	MedicationIssues     []string `json:"medication_issues"`
}

func (m MedicalConcerns) Value() (driver.Value, error) {
	data, err := json.Marshal(m.normalized())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *MedicalConcerns) Scan(value interface{}) error {
	if value == nil {
		*m = MedicalConcerns{}.normalized()
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for MedicalConcerns")
	}

	if len(data) == 0 {
		*m = MedicalConcerns{}.normalized()
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	*m = m.normalized()
	return nil
}

// normalized replaces nil sub-lists with empty ones so callers never see null.
func (m MedicalConcerns) normalized() MedicalConcerns {
	if m.Symptoms == nil {
		m.Symptoms = []string{}
	}
	if m.Complications == nil {
		m.Complications = []string{}
	}
	if m.TreatmentSideEffects == nil {
		m.TreatmentSideEffects = []string{}
	}
	if m.MedicationIssues == nil {
		m.MedicationIssues = []string{}
	}
	return m
}
