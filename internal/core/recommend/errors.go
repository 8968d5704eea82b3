package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication は補完サービスが認証情報を拒否した場合のエラー。
	// 解析エラーとは区別して伝播し、呼び出し側はキー確認を促すメッセージを表示する。
	ErrAuthentication = errors.New("completion service rejected the API credentials")

	// ErrRetrieval はベクトルストアの検索が失敗した場合のエラー。
	// コアではリカバリせず、呼び出し側が再試行メッセージを表示する。
	ErrRetrieval = errors.New("vector store query failed")

	// ErrEmptySelection はランキング結果に有効な候補が一つも残らなかった場合のエラー。
	// 技術的エラーではなく「見つからなかった」としてユーザーに提示する。
	ErrEmptySelection = errors.New("ranking selected no valid candidates")

	// ErrInvalidConstraints は抽出結果がデコードできたもののスキーマに違反した場合のエラー。
	// 伝播の扱いはMalformedOutputErrorと同一。
	ErrInvalidConstraints = errors.New("extracted constraints failed validation")
)

// パイプラインのどの段階でモデル出力が壊れていたかを示す
const (
	StageExtraction = "extraction"
	StageRanking    = "ranking"
)

// MalformedOutputError はモデルの応答が期待する構造に解析できなかった場合のエラー。
// 原文を保持する。抽出段階の原文はそれ自体が妥当な会話応答（丁重な拒否など）で
// ある可能性があるため、呼び出し側はそのまま表示できる。
type MalformedOutputError struct {
	Stage   string // StageExtraction または StageRanking
	RawText string // モデル応答の原文
	Err     error  // 解析・検証の失敗理由
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output at %s stage: %v", e.Stage, e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
