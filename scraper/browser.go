package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Selectors tried for "load more" style pagination on JS-heavy inventory
// pages.
var loadMoreSelectors = []string{
	"button:has-text('Load More')",
	"button:has-text('Show More')",
	"button:has-text('View More')",
	"a:has-text('Load More')",
}

// BrowserRenderer renders JS-heavy dealer pages with a headless browser,
// clicking through bounded load-more pagination before handing the HTML to
// the fallback extractor. The browser launches lazily on first use.
type BrowserRenderer struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
	loadMoreMax int
}

func NewBrowserRenderer(loadMoreMax int) *BrowserRenderer {
	if loadMoreMax <= 0 {
		loadMoreMax = 5
	}
	return &BrowserRenderer{loadMoreMax: loadMoreMax}
}

func (r *BrowserRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	var err error
	r.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	r.browser, err = r.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		r.pw.Stop()
		r.pw = nil
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	r.initialized = true
	return nil
}

func (r *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	if err := r.ensureBrowser(); err != nil {
		return "", err
	}

	page, err := r.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	page.WaitForTimeout(2000)

	for click := 0; click < r.loadMoreMax; click++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if !r.clickLoadMore(page) {
			break
		}
		page.WaitForTimeout(1500)
	}

	return page.Content()
}

func (r *BrowserRenderer) clickLoadMore(page playwright.Page) bool {
	for _, selector := range loadMoreSelectors {
		loc := page.Locator(selector).First()
		visible, err := loc.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
			log.Printf("Warning: load-more click failed (%s): %v", selector, err)
			continue
		}
		return true
	}
	return false
}

func (r *BrowserRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		r.browser.Close()
		r.browser = nil
	}
	if r.pw != nil {
		r.pw.Stop()
		r.pw = nil
	}
	r.initialized = false
}
