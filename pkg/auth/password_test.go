package auth

import "testing"

// TestPasswordHashAndVerify tests the bcrypt round trip
func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("HashPassword() returned the plaintext password")
	}

	if !VerifyPassword(hash, "s3cret") {
		t.Error("VerifyPassword() = false for correct password")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("VerifyPassword() = true for wrong password")
	}
	if VerifyPassword("not-a-hash", "s3cret") {
		t.Error("VerifyPassword() = true for malformed hash")
	}
}

// TestPasswordHashesDiffer tests that each hash uses a fresh salt
func TestPasswordHashesDiffer(t *testing.T) {
	first, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	second, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical, want salted hashes")
	}
}
