package auth

import "testing"

// TestHashPassword はハッシュ化と照合の往復をテストする。
func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "password123" {
		t.Error("ハッシュは平文と異なるべき")
	}
	if !ComparePassword(hash, "password123") {
		t.Error("正しいパスワードは照合に成功するべき")
	}
	if ComparePassword(hash, "wrong-password") {
		t.Error("誤ったパスワードは照合に失敗するべき")
	}
}

// TestHashPassword_DifferentSalts は同じパスワードでもハッシュが毎回
// 異なることをテストする。
func TestHashPassword_DifferentSalts(t *testing.T) {
	hash1, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	hash2, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash1 == hash2 {
		t.Error("ソルトによりハッシュは毎回異なるべき")
	}
}

// TestComparePassword_InvalidHash は不正なハッシュ文字列での照合が
// 失敗することをテストする。
func TestComparePassword_InvalidHash(t *testing.T) {
	if ComparePassword("not-a-bcrypt-hash", "password123") {
		t.Error("不正なハッシュは照合に失敗するべき")
	}
}
