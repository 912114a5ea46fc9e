// Package formstest builds synthetic layouts of known documents for tests.
package formstest

import (
	"strconv"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

func run(text, font string, size float64, page int, x, y, w float64) domain.TextRun {
	return domain.TextRun{
		Text:     text,
		FontName: font,
		FontSize: size,
		Page:     page,
		Box:      domain.BBox{X: x, Y: y, Width: w, Height: size},
	}
}

// Form1040 mimics the first page of an individual income tax return.
func Form1040(year int) []domain.TextRun {
	return []domain.TextRun{
		run("Form", "ABCDEF+HelveticaNeueLTStd-Roman", 6, 0, 36, 38, 14),
		run("1040", "ABCDEF+HelveticaNeueLTStd-Bd", 9, 0, 52, 35, 20),
		run("U.S.", "HelveticaNeueLTStd-Bd", 11, 0, 90, 34, 20),
		run("Individual", "HelveticaNeueLTStd-Bd", 11, 0, 112, 34, 48),
		run("Income", "HelveticaNeueLTStd-Bd", 11, 0, 162, 34, 34),
		run(strconv.Itoa(year), "OCRAStd", 14, 0, 300, 32, 36),
		run("OMB", "HelveticaNeueLTStd-Roman", 6, 0, 380, 36, 16),
		run("1545-0074", "HelveticaNeueLTStd-Roman", 6, 0, 398, 36, 32),
		run("Rev.", "HelveticaNeueLTStd-Roman", 6, 0, 36, 760, 14),
		run(strconv.Itoa(year-1), "HelveticaNeueLTStd-Roman", 6, 0, 52, 760, 16),
	}
}

// FormW2 mimics a wage and tax statement; a small-print prior year sits closer to the title.
func FormW2(year int) []domain.TextRun {
	return []domain.TextRun{
		run("Form", "HelveticaNeueLTStd-Bd", 7, 0, 36, 700, 14),
		run("W-2", "HelveticaNeueLTStd-BlkCn", 24, 0, 54, 690, 30),
		run("Wage", "HelveticaNeueLTStd-Bd", 12, 0, 90, 700, 28),
		run("Statement", "HelveticaNeueLTStd-Bd", 12, 0, 150, 700, 52),
		run(strconv.Itoa(year-1), "HelveticaNeueLTStd-Roman", 7, 0, 90, 714, 16),
		run(strconv.Itoa(year), "OCRAStd", 24, 0, 260, 690, 60),
		run("1545-0008", "HelveticaNeueLTStd-Roman", 7, 0, 380, 40, 32),
	}
}

// Form1099 mimics an interest income statement with the year printed beside the title.
func Form1099(variant string, year int) []domain.TextRun {
	return []domain.TextRun{
		run("Form", "HelveticaNeueLTStd-Roman", 7, 0, 400, 200, 16),
		run("1099-"+variant, "HelveticaNeueLTStd-Bd", 12, 0, 420, 196, 50),
		run(strconv.Itoa(year), "HelveticaNeueLTStd-Roman", 10, 0, 420, 170, 22),
		run("Interest", "HelveticaNeueLTStd-Bd", 10, 0, 480, 196, 40),
		run("(Rev.", "HelveticaNeueLTStd-Roman", 6, 0, 36, 400, 16),
		run("January", "HelveticaNeueLTStd-Roman", 6, 0, 54, 400, 24),
		run("2024)", "HelveticaNeueLTStd-Roman", 6, 0, 80, 400, 16),
	}
}

// Form1098 mimics a mortgage interest statement that prints a two-digit year.
func Form1098(twoDigitYear string) []domain.TextRun {
	return []domain.TextRun{
		run("Form", "HelveticaNeueLTStd-Roman", 7, 0, 380, 110, 16),
		run("1098", "HelveticaNeueLTStd-Bd", 14, 0, 398, 104, 30),
		run(twoDigitYear, "Helvetica", 6, 0, 437.46, 98.37, 6.68),
		run("Mortgage", "HelveticaNeueLTStd-Bd", 10, 0, 440, 120, 40),
	}
}

// Resume is a typed non-form document.
func Resume() []domain.TextRun {
	return []domain.TextRun{
		run("Jane", "Helvetica-Bold", 18, 0, 36, 36, 40),
		run("Doe", "Helvetica-Bold", 18, 0, 80, 36, 36),
		run("Experience", "Helvetica", 11, 0, 36, 90, 60),
		run("2018", "Helvetica", 11, 0, 36, 110, 24),
		run("2022", "Helvetica", 11, 0, 70, 110, 24),
		run("Form", "Helvetica", 11, 0, 36, 130, 24),
		run("1040", "Helvetica", 11, 0, 64, 130, 24),
	}
}
