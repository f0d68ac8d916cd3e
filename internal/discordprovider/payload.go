package discordprovider

import (
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"strconv"
	"time"
)

const (
	colorStarted  = 0x00ff00
	colorStopped  = 0xff0000
	colorStartup  = 0x0099ff
	colorShutdown = 0xff9900
	colorNeutral  = 0x888888
)

const footerText = "Docker Swarm Monitor"

type embedStyle struct {
	color       int
	title       string
	description string
}

func styleFor(kind types.ContainerEventKind) embedStyle {
	switch kind {
	case types.ContainerEventKindStarted:
		return embedStyle{colorStarted, "🟢 Container Started", "✅ Container is now running"}
	case types.ContainerEventKindStopped:
		return embedStyle{colorStopped, "🔴 Container Stopped", "❌ Container has stopped"}
	default:
		return embedStyle{colorNeutral, "⚪ Container " + string(kind), ""}
	}
}

func (p *Provider) BuildPayload(event types.ContainerEvent) types.WebhookPayload {
	style := styleFor(event.Kind)

	fields := []types.EmbedField{
		{Name: "📦 Container", Value: fieldValue(event.ContainerName), Inline: true},
		{Name: "🔧 Service", Value: fieldValue(event.ServiceName), Inline: true},
		{Name: "🖥️ Node", Value: fieldValue(event.NodeName), Inline: true},
	}
	if event.Image != "" {
		fields = append(fields, types.EmbedField{Name: "💿 Image", Value: fieldValue(event.Image), Inline: true})
	}
	if event.ExitCode != nil {
		fields = append(fields, types.EmbedField{
			Name:   "🚪 Exit Code",
			Value:  fieldValue(strconv.Itoa(*event.ExitCode)),
			Inline: true,
		})
	}

	return p.payload(types.Embed{
		Title:       fmt.Sprintf("%s (%s)", style.title, event.ShortID()),
		Description: style.description,
		Color:       style.color,
		Timestamp:   event.OccurredAt.UTC().Format(time.RFC3339),
		Fields:      fields,
		Footer:      p.footer(),
	})
}

func (p *Provider) BuildStartupPayload() types.WebhookPayload {
	fields := []types.EmbedField{
		{Name: "🖥️ Node", Value: fieldValue(p.config.NodeName), Inline: true},
		{Name: "📊 Status", Value: "Monitoring Active", Inline: true},
	}
	if info, err := host.Info(); err == nil {
		fields = append(fields,
			types.EmbedField{
				Name:   "⚙️ Platform",
				Value:  fieldValue(fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)),
				Inline: true,
			},
			types.EmbedField{
				Name:   "⏱️ Host Uptime",
				Value:  fieldValue((time.Duration(info.Uptime) * time.Second).String()),
				Inline: true,
			})
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, types.EmbedField{
			Name:   "🧠 Memory",
			Value:  fieldValue(fmt.Sprintf("%d MB", memInfo.Total/1024/1024)),
			Inline: true,
		})
	}
	if cpuInfo, err := cpu.Info(); err == nil {
		fields = append(fields, types.EmbedField{
			Name:   "🧮 CPUs",
			Value:  fieldValue(strconv.Itoa(len(cpuInfo))),
			Inline: true,
		})
	}

	return p.payload(types.Embed{
		Title:       "🚀 Docker Swarm Monitor Started",
		Description: "Now monitoring container start/stop events",
		Color:       colorStartup,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields:      fields,
		Footer:      p.footer(),
	})
}

func (p *Provider) BuildShutdownPayload() types.WebhookPayload {
	return p.payload(types.Embed{
		Title:       "🛑 Docker Swarm Monitor Stopped",
		Description: "Container monitoring has been stopped",
		Color:       colorShutdown,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []types.EmbedField{
			{Name: "🖥️ Node", Value: fieldValue(p.config.NodeName), Inline: true},
		},
		Footer: p.footer(),
	})
}

func (p *Provider) payload(embed types.Embed) types.WebhookPayload {
	return types.WebhookPayload{
		Username:  p.config.Username,
		AvatarURL: p.config.AvatarURL,
		Embeds:    []types.Embed{embed},
	}
}

func (p *Provider) footer() *types.EmbedFooter {
	return &types.EmbedFooter{Text: footerText, IconURL: p.config.AvatarURL}
}

// fieldValue wraps known values in code formatting and keeps missing ones
// readable instead of rendering an empty field.
func fieldValue(value string) string {
	if value == "" {
		return "n/a"
	}
	return "`" + value + "`"
}
