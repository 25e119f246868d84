package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName 工作表名最大长度
const maxSheetName = 31

// sheetName 生成合法且不重复的工作表名
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	base := string(runes)
	out := base
	for i := 2; used[strings.ToLower(out)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		out = string(r) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

// xlsxValue 单元格取值，非有限数写为文本
func xlsxValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return cell(f)
	}
	return v
}

// NewWorkbook 每个表格一个工作表
func NewWorkbook(tables ...*Table) (*excelize.File, error) {
	f := excelize.NewFile()
	used := make(map[string]bool)
	for i, t := range tables {
		sheet := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("重命名工作表: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("创建工作表 %s: %w", sheet, err)
		}
		row := 1
		put := func(values []any) error {
			axis, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			row++
			return f.SetSheetRow(sheet, axis, &values)
		}
		for _, note := range t.Notes {
			values := make([]any, len(note))
			for j, s := range note {
				values[j] = s
			}
			if err := put(values); err != nil {
				f.Close()
				return nil, fmt.Errorf("写入工作表 %s: %w", sheet, err)
			}
		}
		header := make([]any, len(t.Header))
		for j, h := range t.Header {
			header[j] = h
		}
		if err := put(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入工作表 %s: %w", sheet, err)
		}
		for _, r := range t.Rows {
			values := make([]any, len(r))
			for j, v := range r {
				values[j] = xlsxValue(v)
			}
			if err := put(values); err != nil {
				f.Close()
				return nil, fmt.Errorf("写入工作表 %s: %w", sheet, err)
			}
		}
	}
	return f, nil
}

// WriteXLSX 将表格写为 XLSX 工作簿
func WriteXLSX(w io.Writer, tables ...*Table) error {
	f, err := NewWorkbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出工作簿: %w", err)
	}
	return nil
}

// SaveXLSX 将表格写入 XLSX 文件
func SaveXLSX(path string, tables ...*Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录: %w", err)
	}
	f, err := NewWorkbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存工作簿 %s: %w", path, err)
	}
	return nil
}
