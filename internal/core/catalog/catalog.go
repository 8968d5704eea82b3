package catalog

import (
	"fmt"
	"sort"
)

// Provider は配信サービスのエントリ
type Provider struct {
	ID   int    // TMDBのwatch provider ID
	Name string // 表示名
}

// UnknownProviderError はテーブル外のプロバイダIDを解決しようとした場合のエラー。
// ユーザー入力ではなく設定・データの不具合を示すため、リクエスト全体を失敗させる。
type UnknownProviderError struct {
	ID int
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown streaming provider id: %d", e.ID)
}

// providers は対応する配信サービスの静的テーブル。
// IDはTMDBのwatch provider IDに対応する。
var providers = map[int]string{
	8:    "Netflix",
	9:    "Amazon Prime Video",
	15:   "Hulu",
	337:  "Disney+",
	1899: "Max",
}

// Name はプロバイダIDから表示名を返す
func Name(id int) (string, error) {
	name, ok := providers[id]
	if !ok {
		return "", &UnknownProviderError{ID: id}
	}
	return name, nil
}

// IsProvider はIDがテーブルに含まれるかを返す
func IsProvider(id int) bool {
	_, ok := providers[id]
	return ok
}

// All は全プロバイダをID昇順で返す
func All() []Provider {
	all := make([]Provider, 0, len(providers))
	for id, name := range providers {
		all = append(all, Provider{ID: id, Name: name})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// genres は抽出・フィルタで使用する閉じたジャンル語彙。
// 語彙外の値はバリデーションエラーであり、素通しはしない。
var genres = []string{
	"Action",
	"Documentary",
	"Family",
	"Drama",
	"Horror",
	"Fantasy",
	"Adventure",
	"History",
	"Romance",
	"Music",
	"Western",
	"Animation",
	"War",
	"Comedy",
	"Mystery",
	"TV Movie",
	"Thriller",
	"Science Fiction",
	"Crime",
}

var genreSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		set[g] = struct{}{}
	}
	return set
}()

// Genres はジャンル語彙を定義順で返す
func Genres() []string {
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

// IsGenre は値が語彙に含まれるかを返す
func IsGenre(genre string) bool {
	_, ok := genreSet[genre]
	return ok
}
