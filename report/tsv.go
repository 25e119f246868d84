package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteTSV 以制表符分隔格式写出表格：说明行、表头、数据行
func WriteTSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	for _, note := range t.Notes {
		if err := cw.Write(note); err != nil {
			return fmt.Errorf("写出表 %s 说明行: %w", t.Name, err)
		}
	}
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("写出表 %s 表头: %w", t.Name, err)
	}
	record := make([]string, 0, len(t.Header))
	for _, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, cell(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("写出表 %s: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTSV 将表格写入 dir/<表名>.txt，返回文件路径
func SaveTSV(dir string, t *Table) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录: %w", err)
	}
	path := filepath.Join(dir, t.Name+".txt")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建输出文件: %w", err)
	}
	if err := WriteTSV(f, t); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
