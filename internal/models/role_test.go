package models

import "testing"

func TestCanSign(t *testing.T) {
	resID := int64(10)
	attID := int64(20)
	study := &StudyDetail{ID: 1, ResidentID: &resID, AttendingID: &attID}

	cases := []struct {
		name   string
		actor  Actor
		target SignTarget
		want   bool
	}{
		{"admin_resident", Actor{ID: 99, Role: Admin}, TargetResident, true},
		{"admin_attending", Actor{ID: 99, Role: Admin}, TargetAttending, true},
		{"corresponding_resident", Actor{ID: 10, Role: Resident}, TargetResident, true},
		{"other_resident", Actor{ID: 11, Role: Resident}, TargetResident, false},
		{"resident_signs_attending", Actor{ID: 10, Role: Resident}, TargetAttending, false},
		{"corresponding_attending", Actor{ID: 20, Role: Attending}, TargetAttending, true},
		{"other_attending", Actor{ID: 21, Role: Attending}, TargetAttending, false},
		{"attending_signs_resident", Actor{ID: 20, Role: Attending}, TargetResident, false},
		{"unknown_role", Actor{ID: 10, Role: Role("technician")}, TargetResident, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanSign(tc.actor, study, tc.target); got != tc.want {
				t.Fatalf("CanSign(%v, %v) = %v, ожидали %v", tc.actor, tc.target, got, tc.want)
			}
		})
	}
}

func TestCanSignNoAssignedDoctors(t *testing.T) {
	study := &StudyDetail{ID: 2}
	if CanSign(Actor{ID: 10, Role: Resident}, study, TargetResident) {
		t.Fatal("резидент не может подписывать исследование без назначенного резидента")
	}
	if !CanSign(Actor{ID: 99, Role: Admin}, study, TargetAttending) {
		t.Fatal("админ подписывает даже без назначенных врачей")
	}
}
