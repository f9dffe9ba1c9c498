package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// exportRow is the flat shelter layout shared by the CSV and XLSX exports.
type exportRow struct {
	Name        string `csv:"shelter_name"`
	Address     string `csv:"care_addr"`
	Region      string `csv:"region"`
	Lat         string `csv:"lat"`
	Lon         string `csv:"lon"`
	GeoSource   string `csv:"geo_source"`
	Count       int    `csv:"count"`
	LongTerm    int    `csv:"long_term"`
	Adopted     int    `csv:"adopted"`
	Species     string `csv:"species"`
	ImageURL    string `csv:"image_url"`
	RegNo       string `csv:"care_reg_no"`
	Phone       string `csv:"care_tel"`
	DataStdDate string `csv:"data_std_dt"`
}

func toExportRow(s domain.ShelterSummary) exportRow {
	r := exportRow{
		Name:        s.Name,
		Address:     s.Address,
		Region:      s.Region,
		GeoSource:   string(s.GeoSource),
		Count:       s.Count,
		LongTerm:    s.LongTerm,
		Adopted:     s.Adopted,
		Species:     s.Species,
		ImageURL:    s.ImageURL,
		RegNo:       s.RegNo,
		Phone:       s.Phone,
		DataStdDate: s.DataStdDate,
	}
	if s.Geo != nil {
		r.Lat = strconv.FormatFloat(s.Geo.Lat, 'f', -1, 64)
		r.Lon = strconv.FormatFloat(s.Geo.Lon, 'f', -1, 64)
	}
	return r
}

// WriteCSV writes shelters as UTF-8 CSV with a leading byte order mark, so
// spreadsheet tools detect the encoding of Korean text.
func WriteCSV(w io.Writer, shelters []domain.ShelterSummary) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(exportRow{}); err != nil {
		return eris.Wrap(err, "csv: header")
	}
	for _, s := range shelters {
		if err := enc.Encode(toExportRow(s)); err != nil {
			return eris.Wrapf(err, "csv: encode %s", s.Name)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return eris.Wrap(bw.Close(), "csv: close")
}

// WriteXLSX writes shelters as a single-sheet workbook.
func WriteXLSX(w io.Writer, shelters []domain.ShelterSummary) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("shelters")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	names, err := csvutil.Header(exportRow{}, "csv")
	if err != nil {
		return eris.Wrap(err, "xlsx: header")
	}
	header := sheet.AddRow()
	for _, h := range names {
		header.AddCell().SetString(h)
	}

	for _, s := range shelters {
		r := toExportRow(s)
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Address)
		row.AddCell().SetString(r.Region)
		if s.Geo != nil {
			row.AddCell().SetFloat(s.Geo.Lat)
			row.AddCell().SetFloat(s.Geo.Lon)
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(r.GeoSource)
		row.AddCell().SetInt(r.Count)
		row.AddCell().SetInt(r.LongTerm)
		row.AddCell().SetInt(r.Adopted)
		row.AddCell().SetString(r.Species)
		row.AddCell().SetString(r.ImageURL)
		row.AddCell().SetString(r.RegNo)
		row.AddCell().SetString(r.Phone)
		row.AddCell().SetString(r.DataStdDate)
	}

	return eris.Wrap(f.Write(w), "xlsx: write")
}
