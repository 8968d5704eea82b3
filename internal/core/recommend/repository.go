package recommend

import "context"

// Role はチャットメッセージの役割
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message は役割付きのチャットメッセージ
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest は補完サービスへのリクエスト
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
}

// CompletionClient は補完サービスとの通信ポート。
// 認証失敗は ErrAuthentication として返すこと。
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder はテキストを固定長ベクトルへ変換するポート
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MovieSearcher はフィルタ付き類似検索のポート。
// 結果はコサイン距離の昇順で返り、show_idで重複がないこと。
// 失敗は ErrRetrieval を包んで返すこと。
type MovieSearcher interface {
	SearchMovies(ctx context.Context, vector []float32, filter FilterPredicate, limit int) ([]*CandidateMovie, error)
}
