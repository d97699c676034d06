package ascii

import "strings"

const (
	LineReset = "\r\n"
	// artEOL ends each line of the multi-line art; terminals treat it the
	// same as LineReset.
	artEOL = "\n\r"

	// ClearSeq moves the cursor up past the previous frame and clears.
	ClearSeq = "\033[100A\033[2J"
)

const (
	Title       = "#=---------+ Boggie Boogie Reformation 2: Electric Boogaloo +---------=#"
	Bar         = "#=-------------------------------=+#+=--------------------------------=#"
	ChooseInstr = "#=---------+       Use the joystick to choose a song        +---------=#"
	YesNo       = "    Yes   +   No    "
	WinText     = " You Won!! Congrats!!"
	LoseText    = " You lost :( Better Luck Next Time"
	AgainText   = " Play Again? "
)

func lines(ls ...string) string {
	return strings.Join(ls, artEOL) + artEOL
}

var (
	Miss = lines(
		` \\ \\         // // `,
		`  \\ \\       // //  `,
		`   \\ \\     // //   `,
		`    \\ \\   // //    `,
		`     \\ \\ // //     `,
		`     // // \\ \\     `,
		`    // //   \\ \\    `,
		`   // //     \\ \\   `,
		`  // //       \\ \\  `,
		` // //         \\ \\ `,
	)

	Hit = lines(
		`!              // //`,
		`              // // `,
		`             // //  `,
		`            // //   `,
		`           // //    `,
		`          // //     `,
		`         // //      `,
		`\\ \\   // //   `,
		` \\ \\ // //    `,
		`  \\ \\  //     `,
		`   \\\\\//     `,
	)

	ArrowUp = lines(
		`    /\    `,
		`   /  \   `,
		`  /    \  `,
		` /      \ `,
		`/        \`,
		`----  ---- `,
		`   |  |    `,
		`   |  |    `,
		`   |  |    `,
		`   |  |    `,
		`   |__|    `,
	)

	ArrowDown = lines(
		`   |--|    `,
		`   |  |    `,
		`   |  |    `,
		`   |  |    `,
		`   |  |    `,
		`----  ---- `,
		`\        /`,
		` \      / `,
		`  \    /  `,
		`   \  /   `,
		`    \/    `,
	)

	ArrowLeft = lines(
		`    /|                 `,
		`   / |                 `,
		`  /  |                 `,
		` /    ---------------  `,
		`/                    | `,
		`\                    |`,
		` \    --------------- `,
		`  \  |                `,
		`   \ |                `,
		`    \|                `,
	)

	ArrowRight = lines(
		`                |\    `,
		`                | \   `,
		`                |  \  `,
		` ---------------    \ `,
		`|                    \`,
		`|                    / `,
		` ---------------    /  `,
		`                |  /   `,
		`                | /    `,
		`                |/     `,
	)
)

// centre pads s with spaces to the banner width.
func centre(s string) string {
	const width = len(Bar)
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

// songRose lays out the four song names around the stick cross, in the
// positions that select them.
func songRose(up, left, right, down string) []string {
	mid := left + "      +      " + right
	return []string{centre(up), centre(mid), centre(down)}
}
