// Package imagesearch resolves an auxiliary overlay image for a dialogue
// line by downloading the top result for its search term. Failures degrade
// the overlay, never the render.
package imagesearch
