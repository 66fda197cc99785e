package ui

import (
	"bytes"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/bamsammich/extsort/internal/engine"
)

// BucketTable renders one row per bucket with file count and size.
func BucketTable(buckets []engine.BucketStat) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Bucket", "Files", "Size", "Failed"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	var files, failed int
	var size int64
	for _, b := range buckets {
		table.Append([]string{b.Name, FormatCount(int64(b.Files)), FormatBytes(b.Bytes), strconv.Itoa(b.Failed)})
		files += b.Files
		failed += b.Failed
		size += b.Bytes
	}
	table.SetFooter([]string{
		strconv.Itoa(len(buckets)) + " buckets",
		FormatCount(int64(files)),
		FormatBytes(size),
		strconv.Itoa(failed),
	})

	table.Render()
	return buf.String()
}
