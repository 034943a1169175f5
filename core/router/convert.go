package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// Convert answers temperature (Celsius and Fahrenheit) and distance (feet
// and meters) conversions. Both unit names must be present; the one that
// comes first is the source unit. ok is false when the text is not a
// conversion this package can do.
func Convert(text string) (answer string, ok bool) {
	text = strings.ToLower(text)

	if strings.Contains(text, "celsius") && strings.Contains(text, "fahrenheit") {
		value, found := firstNumber(text)
		if !found {
			return "", false
		}
		if unitComesFirst(text, "celsius", "fahrenheit") {
			return fmt.Sprintf("%s degrees Celsius is %.1f degrees Fahrenheit",
				formatInput(value), CelsiusToFahrenheit(value)), true
		}
		return fmt.Sprintf("%s degrees Fahrenheit is %.1f degrees Celsius",
			formatInput(value), FahrenheitToCelsius(value)), true
	}

	if strings.Contains(text, "feet") && strings.Contains(text, "meters") {
		value, found := firstNumber(text)
		if !found {
			return "", false
		}
		if unitComesFirst(text, "feet", "meters") {
			return fmt.Sprintf("%s feet is %.2f meters", formatInput(value), FeetToMeters(value)), true
		}
		return fmt.Sprintf("%s meters is %.2f feet", formatInput(value), MetersToFeet(value)), true
	}

	return "", false
}

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func FeetToMeters(ft float64) float64 { return ft * 0.3048 }

func MetersToFeet(m float64) float64 { return m / 0.3048 }

// unitComesFirst reports whether a appears before the first occurrence of b.
func unitComesFirst(text, a, b string) bool {
	before, _, _ := strings.Cut(text, b)
	return strings.Contains(before, a)
}

func firstNumber(text string) (float64, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// formatInput echoes the number back with at least one decimal, so 32 is
// said as "32.0" and 98.6 stays "98.6".
func formatInput(value float64) string {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
