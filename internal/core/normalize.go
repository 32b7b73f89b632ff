package core

import "strconv"

// Normalize turns a raw table into a Dataset.
//
// The date column is required. When it is absent Normalize returns a
// *MissingColumnError together with an empty dataset that still carries the
// source header, so callers can keep rendering in a degraded mode.
// Rows whose date cannot be parsed are dropped and counted in Dropped.
// Every surviving record gets Year and MonthKey, and its Values gain the
// derived Ano and Mês columns.
func Normalize(t Table) (Dataset, error) {
	columns := append([]string(nil), t.Columns...)

	dateIdx := t.Index(ColDate)
	if dateIdx < 0 {
		return Dataset{Columns: columns}, &MissingColumnError{Column: ColDate}
	}

	yearIdx := t.Index(ColYear)
	if yearIdx < 0 {
		yearIdx = len(columns)
		columns = append(columns, ColYear)
	}
	monthIdx := t.Index(ColMonth)
	if monthIdx < 0 {
		monthIdx = len(columns)
		columns = append(columns, ColMonth)
	}

	regionIdx := t.Index(ColRegion)
	cityIdx := t.Index(ColCity)
	productIdx := t.Index(ColProduct)
	sellerIdx := t.Index(ColSalesperson)
	amountIdx := t.Index(ColAmount)

	ds := Dataset{Columns: columns, Records: make([]Record, 0, len(t.Rows))}
	for _, row := range t.Rows {
		date, ok := ParseDate(cell(row, dateIdx))
		if !ok {
			ds.Dropped++
			continue
		}
		amount, _ := ParseAmount(cell(row, amountIdx))

		rec := Record{
			Date:        date,
			Year:        date.Year(),
			MonthKey:    MonthKey(date),
			Region:      cell(row, regionIdx),
			City:        cell(row, cityIdx),
			Product:     cell(row, productIdx),
			Salesperson: cell(row, sellerIdx),
			Amount:      amount,
		}

		values := make([]string, len(columns))
		copy(values, row)
		values[dateIdx] = date.Format("2006-01-02")
		values[yearIdx] = strconv.Itoa(rec.Year)
		values[monthIdx] = rec.MonthKey
		rec.Values = values

		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// cell returns row[i] or "" when i is out of range.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
