package vt

// decGraphics is the DEC special graphics set selected by ESC ( 0 or SO.
var decGraphics = map[rune]rune{
	'`': '◆',
	'a': '▒',
	'f': '°',
	'g': '±',
	'j': '┘',
	'k': '┐',
	'l': '┌',
	'm': '└',
	'n': '┼',
	'o': '⎺',
	'p': '⎻',
	'q': '─',
	'r': '⎼',
	's': '⎽',
	't': '├',
	'u': '┤',
	'v': '┴',
	'w': '┬',
	'x': '│',
	'y': '≤',
	'z': '≥',
	'~': '·',
}
