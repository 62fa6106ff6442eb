package features

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func canonicalPayload() (map[string]interface{}, map[string]interface{}) {
	patient := map[string]interface{}{"age": 63, "gender": 1}
	medical := map[string]interface{}{
		"heart_rate":   72,
		"systolic_bp":  145,
		"diastolic_bp": 90,
		"blood_sugar":  110,
		"ck_mb":        5.2,
		"troponin":     0.15,
	}
	return patient, medical
}

func TestBuildFixedOrder(t *testing.T) {
	patient, medical := canonicalPayload()

	vec, err := Build(patient, medical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := Vector{63, 1, 72, 145, 90, 110, 5.2, 0.15}
	if vec != expected {
		t.Fatalf("expected %v, got %v", expected, vec)
	}
}

func TestBuildOrderMatchesNames(t *testing.T) {
	patient := map[string]interface{}{}
	medical := map[string]interface{}{}
	for i, f := range layout {
		if f.key != Names[i] {
			t.Fatalf("position %d: layout key %s does not match name %s", i, f.key, Names[i])
		}
		target := medical
		if f.section == "patient" {
			target = patient
		}
		target[f.key] = float64(i + 1)
	}

	vec, err := Build(patient, medical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range vec {
		if v != float64(i+1) {
			t.Fatalf("position %d holds %v", i, v)
		}
	}
}

func TestBuildCoercesJSONNumbersAndStrings(t *testing.T) {
	var payload struct {
		Patient map[string]interface{} `json:"patient"`
		Medical map[string]interface{} `json:"medical"`
	}
	body := `{"patient":{"age":"63","gender":1},"medical":{"heart_rate":72,"systolic_bp":145,"diastolic_bp":90,"blood_sugar":" 110 ","ck_mb":5.2,"troponin":0.15}}`
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		t.Fatal(err)
	}

	vec, err := Build(payload.Patient, payload.Medical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec[0] != 63 || vec[5] != 110 || vec[7] != 0.15 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestBuildMissingField(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(p, m map[string]interface{}) (map[string]interface{}, map[string]interface{})
		field string
	}{
		{"troponin absent", func(p, m map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
			delete(m, "troponin")
			return p, m
		}, "medical.troponin"},
		{"age null", func(p, m map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
			p["age"] = nil
			return p, m
		}, "patient.age"},
		{"no medical section", func(p, m map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
			return p, nil
		}, "medical"},
		{"no patient section", func(p, m map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
			return nil, m
		}, "patient"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patient, medical := tc.edit(canonicalPayload())
			_, err := Build(patient, medical)

			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if missing.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, missing.Field)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("message should name the field: %q", err.Error())
			}
			if !IsInputError(err) {
				t.Fatal("expected input error")
			}
		})
	}
}

func TestBuildTypeConversion(t *testing.T) {
	bad := []interface{}{"high", true, map[string]interface{}{"v": 1}, []interface{}{1}, "NaN", "Inf"}
	for _, value := range bad {
		patient, medical := canonicalPayload()
		medical["ck_mb"] = value

		_, err := Build(patient, medical)
		var conversion *TypeConversionError
		if !errors.As(err, &conversion) {
			t.Fatalf("%v: expected TypeConversionError, got %v", value, err)
		}
		if conversion.Field != "medical.ck_mb" {
			t.Fatalf("unexpected field %s", conversion.Field)
		}
		if !IsInputError(err) {
			t.Fatal("expected input error")
		}
	}
}

func TestInputsFollowNames(t *testing.T) {
	vec := Vector{63, 1, 72, 145, 90, 110, 5.2, 0.15}
	patient, medical := Inputs(vec)
	if patient.Age != 63 || patient.Gender != 1 {
		t.Fatalf("unexpected patient %+v", patient)
	}
	if medical.HeartRate != 72 || medical.SystolicBP != 145 || medical.DiastolicBP != 90 ||
		medical.BloodSugar != 110 || medical.CKMB != 5.2 || medical.Troponin != 0.15 {
		t.Fatalf("unexpected medical %+v", medical)
	}
}

func TestIsInputErrorRejectsOtherErrors(t *testing.T) {
	if IsInputError(errors.New("boom")) {
		t.Fatal("plain errors are not input errors")
	}
}
