package media

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"path"
	"strings"

	"github.com/nfnt/resize"

	"github.com/ovrm/mediahub/internal/config"
	"github.com/ovrm/mediahub/internal/models"
)

// generateImageSizes produces one rendition per configured size profile from
// the source bytes and writes them next to the stored original at dstPath.
// Profiles whose codec rejects the image are skipped; the rest of the batch
// still runs. Disk failures abort, codec failures do not.
func (s *Service) generateImageSizes(src []byte, dstPath string) (map[string]models.Rendition, error) {
	img, err := decodeImage(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	dir := path.Dir(dstPath) + "/"
	fileName := path.Base(dstPath)
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	base := strings.TrimSuffix(fileName, path.Ext(fileName))

	sizes := map[string]models.Rendition{}
	for _, profile := range s.cfg.SizeProfiles {
		if !profile.Usable() {
			continue
		}

		out := resizeForProfile(img, profile)
		w := out.Bounds().Dx()
		h := out.Bounds().Dy()
		sizedBase := fmt.Sprintf("%s-%dpx-%dpx", base, w, h)

		encoded, err := encodeImage(out, ext)
		if err != nil {
			log.Printf("⚠️  Skipping size %q for %s: %v", profile.Name, fileName, err)
			continue
		}

		sizedName := sizedBase + "." + ext
		if err := s.disk.Put(dir+sizedName, encoded); err != nil {
			return nil, err
		}
		sizedSize, err := s.disk.Size(dir + sizedName)
		if err != nil {
			return nil, err
		}

		rendition := models.Rendition{
			FileName: sizedName,
			FileSize: sizedSize,
			Width:    w,
			Height:   h,
		}

		if s.cfg.WebpEnabled {
			webpName := sizedBase + ".webp"
			webpData, err := encodeWebp(out)
			if err != nil {
				log.Printf("⚠️  Skipping webp sibling for %s: %v", sizedName, err)
			} else {
				if err := s.disk.Put(dir+webpName, webpData); err != nil {
					return nil, err
				}
				webpSize, err := s.disk.Size(dir + webpName)
				if err != nil {
					return nil, err
				}
				rendition.WebpName = &webpName
				rendition.WebpSize = &webpSize
			}
		}

		sizes[profile.Name] = rendition
	}

	return sizes, nil
}

// capDimensions downscales the image, preserving aspect ratio, so neither
// edge exceeds max. Images already within the cap pass through untouched.
func capDimensions(img image.Image, max int) image.Image {
	if img.Bounds().Dx() <= max && img.Bounds().Dy() <= max {
		return img
	}
	return resize.Thumbnail(uint(max), uint(max), img, resize.Lanczos3)
}

// resizeForProfile maps a size profile onto the source image: one free edge
// preserves aspect ratio, both edges with crop scale-to-cover then clip to the
// exact box, both edges without crop stretch to the exact box.
func resizeForProfile(img image.Image, p config.SizeProfile) image.Image {
	switch {
	case p.Width != nil && p.Height == nil:
		return resize.Resize(uint(*p.Width), 0, img, resize.Lanczos3)
	case p.Width == nil && p.Height != nil:
		return resize.Resize(0, uint(*p.Height), img, resize.Lanczos3)
	case p.Crop:
		return cropToFit(img, *p.Width, *p.Height)
	default:
		return resize.Resize(uint(*p.Width), uint(*p.Height), img, resize.Lanczos3)
	}
}

// cropToFit scales the image so it covers the w x h box, then crops the
// overflow evenly from both sides.
func cropToFit(img image.Image, w, h int) image.Image {
	inAR := float64(img.Bounds().Dx()) / float64(img.Bounds().Dy())
	outAR := float64(w) / float64(h)

	var scaleW, scaleH uint
	if inAR > outAR {
		// wider than the target box: match height, crop the sides
		scaleW = uint(float64(h) * inAR)
		scaleH = uint(h)
	} else {
		// taller than the target box: match width, crop top and bottom
		scaleW = uint(w)
		scaleH = uint(float64(w) / inAR)
	}

	scaled := resize.Resize(scaleW, scaleH, img, resize.Lanczos3)

	xoff := (scaled.Bounds().Dx() - w) / 2
	yoff := (scaled.Bounds().Dy() - h) / 2

	rect := image.Rect(0, 0, w, h)
	target := image.NewRGBA(rect)
	draw.Draw(target, rect, scaled, image.Pt(xoff, yoff), draw.Src)
	return target
}
