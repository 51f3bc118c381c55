package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 行ロック待ちが上限を超えた
	ErrLockTimeout = errors.New("lock timeout")
	// 直列化失敗・デッドロックなどでTxが中断された（再試行可）
	ErrTxAborted = errors.New("transaction aborted")
	// カウンタ新規作成時にショップが指定されていない
	ErrShopIDRequired = errors.New("shop id required")
)
