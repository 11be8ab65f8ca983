package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw-r--r-- (擁有者讀寫，其他人唯讀)
const FileModeDefault fs.FileMode = 0644

// WAL 以 JSON Lines 格式追加寫入的日誌檔，每筆寫入後立即 fsync
type WAL struct {
	file *os.File
	mu   sync.Mutex
	// entries: 目前檔案內的筆數 (Replay 與 Append 累計)
	entries int
}

// Open 開啟或建立一個 WAL 檔案
// O_APPEND 每次寫入時自動跳到文件末尾，O_CREATE 不存在則建立
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeDefault)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{file: file}, nil
}

// Append 寫入一筆資料並刷入硬碟，回傳後即為持久化
func (w *WAL) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode wal entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("write wal entry: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	w.entries++
	return nil
}

// Replay 從頭依序讀出所有資料
// 檔尾若有寫到一半的殘行 (程序在寫入途中中止) 會被截掉，其餘格式錯誤則回傳錯誤
func (w *WAL) Replay(fn func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var (
		reader = bufio.NewReader(w.file)
		offset int64
		count  int
	)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				// 沒有換行結尾的殘行
				if truncErr := w.file.Truncate(offset); truncErr != nil {
					return fmt.Errorf("truncate torn wal tail: %w", truncErr)
				}
			}
			break
		}
		if err != nil {
			return err
		}
		if !json.Valid(line) {
			return fmt.Errorf("corrupt wal entry at offset %d", offset)
		}
		if err := fn(json.RawMessage(line)); err != nil {
			return err
		}
		offset += int64(len(line))
		count++
	}
	w.entries = count
	return nil
}

// Entries 目前檔案內的筆數
func (w *WAL) Entries() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
