package repository

import "testing"

// インターフェース実装の検証
var (
	_ UserRepository      = (*PostgresUserRepo)(nil)
	_ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
	_ FeedRepository      = (*PostgresFeedRepo)(nil)
	_ UserFeedRepository  = (*PostgresUserFeedRepo)(nil)
	_ EntryRepository     = (*PostgresEntryRepo)(nil)
	_ UserEntryRepository = (*PostgresUserEntryRepo)(nil)
)

// TestNewPostgresRepos はコンストラクタが非nilのインスタンスを返すことをテストする。
// クエリの検証は実データベースを必要とするため、ここでは行わない。
func TestNewPostgresRepos(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepoはnilを返すべきではない")
	}
	if NewPostgresAuthTokenRepo(nil) == nil {
		t.Error("NewPostgresAuthTokenRepoはnilを返すべきではない")
	}
	if NewPostgresFeedRepo(nil) == nil {
		t.Error("NewPostgresFeedRepoはnilを返すべきではない")
	}
	if NewPostgresUserFeedRepo(nil) == nil {
		t.Error("NewPostgresUserFeedRepoはnilを返すべきではない")
	}
	if NewPostgresEntryRepo(nil) == nil {
		t.Error("NewPostgresEntryRepoはnilを返すべきではない")
	}
	if NewPostgresUserEntryRepo(nil) == nil {
		t.Error("NewPostgresUserEntryRepoはnilを返すべきではない")
	}
}
