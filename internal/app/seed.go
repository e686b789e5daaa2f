package app

import (
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
)

// Demo holds the IDs of the records SeedDemo creates.
type Demo struct {
	PatientIDs  []int64
	DoctorIDs   []int64
	ScheduleIDs []int64
	TestIDs     []int64
}

// SeedDemo fills an in-memory store with a small hospital: two doctors with
// weekly sessions, a few patients and the common laboratory tests.
func SeedDemo(s *memory.Store) Demo {
	var d Demo

	s.SetSetting(model.SettingHospitalCharge, "750.00")
	s.SetSetting(model.SettingSpecializations, "Cardiology,Dermatology,General Practice,Paediatrics")

	for _, p := range []model.Patient{
		{Name: "Nimal Perera", Phone: "0771234567", Email: "nimal@example.com", Gender: model.GenderMale},
		{Name: "Kumari Fernando", Phone: "0719876543", Email: "kumari@example.com", Gender: model.GenderFemale},
		{Name: "Ruwan Jayasinghe", Phone: "0755551234", Gender: model.GenderMale},
	} {
		d.PatientIDs = append(d.PatientIDs, s.AddPatient(p))
	}

	silva := s.AddDoctor(model.Doctor{
		Name:           "Dr. Silva",
		Specialization: "Cardiology",
		ChannelingFee:  decimal.RequireFromString("2000.00"),
	})
	mendis := s.AddDoctor(model.Doctor{
		Name:           "Dr. Mendis",
		Specialization: "Paediatrics",
		ChannelingFee:  decimal.RequireFromString("1500.00"),
	})
	d.DoctorIDs = []int64{silva, mendis}

	for _, sc := range []model.Schedule{
		{DoctorID: silva, Day: model.Monday, StartTime: "09:00", EndTime: "12:00"},
		{DoctorID: silva, Day: model.Thursday, StartTime: "14:00", EndTime: "17:00"},
		{DoctorID: mendis, Day: model.Wednesday, StartTime: "08:30", EndTime: "11:30"},
		{DoctorID: mendis, Day: model.Saturday, StartTime: "09:00", EndTime: "13:00"},
	} {
		d.ScheduleIDs = append(d.ScheduleIDs, s.AddSchedule(sc))
	}

	for _, t := range []model.MedicalTest{
		{Name: "Full Blood Count", Type: "LAB", Price: decimal.RequireFromString("1500.00"), Active: true},
		{Name: "Lipid Profile", Type: "LAB", Price: decimal.RequireFromString("850.00"), Active: true},
		{Name: "ECG", Type: "CARDIAC", Price: decimal.RequireFromString("1200.00"), Active: true},
		{Name: "Chest X-Ray", Type: "IMAGING", Price: decimal.RequireFromString("2500.00"), Active: false},
	} {
		d.TestIDs = append(d.TestIDs, s.PutMedicalTest(t))
	}

	return d
}
