package utils

import "testing"

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64", len(a))
	}
	b, err := GenerateToken(32)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two generated tokens are identical")
	}
}

func TestGenerateOTP(t *testing.T) {
	for range 100 {
		otp, err := GenerateOTP(6)
		if err != nil {
			t.Fatal(err)
		}
		if len(otp) != 6 {
			t.Fatalf("otp %q length = %d, want 6", otp, len(otp))
		}
		if otp[0] == '0' {
			t.Fatalf("otp %q has a leading zero", otp)
		}
	}
	if _, err := GenerateOTP(0); err == nil {
		t.Error("GenerateOTP(0) accepted")
	}
}
