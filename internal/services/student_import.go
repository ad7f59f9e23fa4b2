package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yyup/kindergarten-service/internal/models"
)

const (
	MaxImportFileSize = 10 << 20
	exportSheetName   = "学生名单"
)

// ImportExtensions are the spreadsheet formats accepted by student import.
var ImportExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// headerAliases maps accepted column headers to request fields.
var headerAliases = map[string]string{
	"姓名":             "name",
	"name":           "name",
	"学号":             "studentNo",
	"studentno":      "studentNo",
	"student_no":     "studentNo",
	"性别":             "gender",
	"gender":         "gender",
	"出生日期":           "birthDate",
	"birthdate":      "birthDate",
	"入学日期":           "enrollmentDate",
	"enrollmentdate": "enrollmentDate",
	"班级id":           "classId",
	"班级":             "classId",
	"classid":        "classId",
	"家长姓名":           "parentName",
	"parentname":     "parentName",
	"家长电话":           "parentPhone",
	"parentphone":    "parentPhone",
	"状态":             "status",
	"status":         "status",
	"备注":             "remark",
	"remark":         "remark",
}

var exportHeader = []interface{}{"学号", "姓名", "性别", "出生日期", "入学日期", "班级ID", "家长姓名", "家长电话", "状态", "备注"}

func readSheet(fileName string, r io.Reader) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !ImportExtensions[ext] {
		return nil, NewInvalidFileError("仅支持 .xlsx、.xls、.csv 文件")
	}

	if ext == ".csv" {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, NewInvalidFileError("CSV 文件解析失败")
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
		}
		return rows, nil
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewInvalidFileError("Excel 文件解析失败")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, NewInvalidFileError("Excel 文件解析失败")
	}
	return rows, nil
}

func mapStudentColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := headerAliases[key]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = i
			}
		}
	}
	return columns
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// studentRequestFromRow maps a sheet row onto a create request. Cells that
// cannot be converted are reported as a row failure.
func studentRequestFromRow(row []string, columns map[string]int) (*CreateStudentRequest, error) {
	cell := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	optional := func(field string) *string {
		if v := cell(field); v != "" {
			return &v
		}
		return nil
	}

	req := &CreateStudentRequest{
		Name:           cell("name"),
		StudentNo:      cell("studentNo"),
		Gender:         parseGender(cell("gender")),
		BirthDate:      optional("birthDate"),
		EnrollmentDate: optional("enrollmentDate"),
		ParentName:     optional("parentName"),
		ParentPhone:    optional("parentPhone"),
		Status:         models.StudentStatus(strings.ToLower(cell("status"))),
		Remark:         optional("remark"),
	}
	if v := cell("classId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("班级ID必须为正整数: %s", v)
		}
		classID := uint(id)
		req.ClassID = &classID
	}
	return req, nil
}

func parseGender(value string) models.Gender {
	switch strings.ToLower(value) {
	case "男", "male", "m":
		return models.GenderMale
	case "女", "female", "f":
		return models.GenderFemale
	}
	return models.Gender(value)
}

func writeStudentWorkbook(students []*models.Student, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, st := range students {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			st.StudentNo,
			st.Name,
			string(st.Gender),
			formatDate(st.BirthDate),
			formatDate(st.EnrollmentDate),
			uintOrEmpty(st.ClassID),
			stringOrEmpty(st.ParentName),
			stringOrEmpty(st.ParentPhone),
			string(st.Status),
			stringOrEmpty(st.Remark),
		}
		if err := f.SetSheetRow(exportSheetName, cellName, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uintOrEmpty(v *uint) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
