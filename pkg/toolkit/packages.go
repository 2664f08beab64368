package toolkit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"droidview/pkg/bridge"
	"droidview/pkg/types"

	"golang.org/x/sync/errgroup"
)

// PackageFilter selects which packages `pm list packages` returns
type PackageFilter string

const (
	PackagesThirdParty PackageFilter = "-3"
	PackagesEnabled    PackageFilter = "-e"
	PackagesAll        PackageFilter = ""
)

// batchConcurrency bounds parallel pm/uninstall calls on one device
const batchConcurrency = 4

// ParsePackages extracts names from `pm list packages` output, sorted
func ParsePackages(output string) []string {
	var pkgs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(line, "package:"); ok && name != "" {
			pkgs = append(pkgs, name)
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// ListPackages runs `pm list packages` with filter
func ListPackages(ctx context.Context, adb *bridge.Adb, serial string, filter PackageFilter) ([]string, error) {
	cmd := "pm list packages"
	if filter != PackagesAll {
		cmd += " " + string(filter)
	}
	out, err := adb.Shell(ctx, serial, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return ParsePackages(out), nil
}

// UninstallPackages removes each package and reports which succeeded
func UninstallPackages(ctx context.Context, adb *bridge.Adb, serial string, pkgs []string) types.BatchResult {
	res := applyEach(ctx, pkgs, func(ctx context.Context, pkg string) error {
		return adb.Uninstall(ctx, serial, pkg)
	})
	res.Message = BatchMessage("uninstalled", len(res.Succeeded), len(res.Failed))
	return res
}

// DisablePackages disables each package for user 0
func DisablePackages(ctx context.Context, adb *bridge.Adb, serial string, pkgs []string) types.BatchResult {
	res := applyEach(ctx, pkgs, func(ctx context.Context, pkg string) error {
		return adb.DisableUser(ctx, serial, pkg)
	})
	res.Message = BatchMessage("disabled", len(res.Succeeded), len(res.Failed))
	return res
}

func applyEach(ctx context.Context, pkgs []string, fn func(context.Context, string) error) types.BatchResult {
	errs := make([]error, len(pkgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, pkg := range pkgs {
		i, pkg := i, pkg
		g.Go(func() error {
			errs[i] = fn(gctx, pkg)
			return nil
		})
	}
	_ = g.Wait()

	res := types.BatchResult{Succeeded: []string{}, Failed: []string{}}
	for i, pkg := range pkgs {
		if errs[i] == nil {
			res.Succeeded = append(res.Succeeded, pkg)
			continue
		}
		if res.Errors == nil {
			res.Errors = make(map[string]string)
		}
		res.Failed = append(res.Failed, pkg)
		res.Errors[pkg] = errs[i].Error()
	}
	return res
}

// BatchMessage is the status line after a batch operation
func BatchMessage(verb string, succeeded, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("Successfully %s %d app(s)", verb, succeeded)
	}
	return fmt.Sprintf("%s %d app(s), %d failed", strings.ToUpper(verb[:1])+verb[1:], succeeded, failed)
}

// Remaining drops the succeeded packages from list, keeping failures visible
func Remaining(list []string, res types.BatchResult) []string {
	done := make(map[string]bool, len(res.Succeeded))
	for _, p := range res.Succeeded {
		done[p] = true
	}
	out := make([]string, 0, len(list))
	for _, p := range list {
		if !done[p] {
			out = append(out, p)
		}
	}
	return out
}
