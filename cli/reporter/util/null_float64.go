package util

import (
	"database/sql"
	"fmt"
	"strconv"
)

// NullFloat64 принимает также DECIMAL-значения, которые драйверы отдают как []byte
type NullFloat64 struct {
	sql.NullFloat64
}

func (nf *NullFloat64) Scan(value interface{}) error {
	if value == nil {
		nf.Float64, nf.Valid = 0, false
		return nil
	}

	switch v := value.(type) {
	case float64:
		nf.Float64 = v
	case float32:
		nf.Float64 = float64(v)
	case int64:
		nf.Float64 = float64(v)
	case int32:
		nf.Float64 = float64(v)
	case int:
		nf.Float64 = float64(v)
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("не удалось разобрать число '%s': %v", string(v), err)
		}
		nf.Float64 = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("не удалось разобрать число '%s': %v", v, err)
		}
		nf.Float64 = f
	default:
		return fmt.Errorf("неподдерживаемый тип для числа с плавающей точкой: %T", value)
	}
	nf.Valid = true

	return nil
}

// OrZero значение или 0, если в базе NULL
func (nf NullFloat64) OrZero() float64 {
	if !nf.Valid {
		return 0
	}
	return nf.Float64
}
